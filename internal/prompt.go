package internal

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// PromptData for template injection
type PromptData struct {
	Transcript string
	Question   string
}

// PromptManager handles loading and processing prompt templates
type PromptManager struct {
	promptFile   string
	promptString string
	configDir    string
}

// NewPromptManager creates a new prompt manager. promptSetting may be a file
// path, a literal template, or empty for the default prompt.
func NewPromptManager(configDir, promptSetting string) *PromptManager {
	pm := &PromptManager{configDir: configDir}

	if promptSetting != "" {
		if IsLikelyFilePath(promptSetting) && FileExists(promptSetting) {
			pm.promptFile = promptSetting
		} else {
			pm.promptString = promptSetting
		}
	}

	return pm
}

// CreatePrompt builds the single-turn instruction sent to the model
func (pm *PromptManager) CreatePrompt(transcript, question string) (string, error) {
	tmplContent, err := pm.templateContent()
	if err != nil {
		return "", err
	}

	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(tmplContent)
	if err != nil {
		return "", fmt.Errorf("parsing prompt template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, PromptData{Transcript: transcript, Question: question}); err != nil {
		return "", fmt.Errorf("executing prompt template: %w", err)
	}

	return buf.String(), nil
}

// templateContent picks the custom string, the custom file, the user's
// prompt.txt, or the embedded default, in that order
func (pm *PromptManager) templateContent() (string, error) {
	if pm.promptString != "" {
		return pm.promptString, nil
	}

	promptFile := pm.promptFile
	if promptFile == "" && pm.configDir != "" {
		if candidate := filepath.Join(pm.configDir, "prompt.txt"); FileExists(candidate) {
			promptFile = candidate
		}
	}

	var content []byte
	var err error
	if promptFile != "" {
		content, err = os.ReadFile(promptFile)
	} else {
		content, err = defaultFS.ReadFile("prompt.txt")
	}
	if err != nil {
		return "", fmt.Errorf("reading prompt template: %w", err)
	}
	return strings.TrimRight(string(content), "\r\n"), nil
}

// IsLikelyFilePath uses heuristics to determine if a string is likely a file path
func IsLikelyFilePath(s string) bool {
	if strings.Contains(s, "{{") {
		return false
	}

	if strings.Contains(s, "/") || strings.Contains(s, "\\") {
		return true
	}

	if strings.HasSuffix(s, ".txt") || strings.HasSuffix(s, ".md") ||
		strings.HasSuffix(s, ".template") || strings.HasSuffix(s, ".tmpl") {
		return true
	}

	if len(s) > 200 {
		return false
	}

	return !strings.Contains(s, " ") && !strings.Contains(s, "\n")
}
