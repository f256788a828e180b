package internal

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	headErr error
	putErr  error
	heads   []string
	puts    map[string][]byte
	types   map[string]string
}

func (f *fakeS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.heads = append(f.heads, aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key))
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	if f.puts == nil {
		f.puts = map[string][]byte{}
		f.types = map[string]string{}
	}
	name := aws.ToString(params.Bucket) + "/" + aws.ToString(params.Key)
	f.puts[name] = data
	f.types[name] = aws.ToString(params.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestS3StagerSkipsExistingObjects(t *testing.T) {
	api := &fakeS3{}
	source := &fakeSource{dir: t.TempDir(), audioSize: 16}

	err := NewS3Stager(api, source, nil).Stage(context.Background(), testRef("abc"), "media", "abc.mp3")
	require.NoError(t, err)
	assert.Equal(t, []string{"media/abc.mp3"}, api.heads)
	assert.Zero(t, source.audioCalls)
	assert.Empty(t, api.puts)
}

func TestS3StagerUploadsMissingAudio(t *testing.T) {
	api := &fakeS3{headErr: &s3types.NotFound{}}
	source := &fakeSource{dir: t.TempDir(), audioSize: 16}
	bar := &recordingBar{}

	err := NewS3Stager(api, source, nil).Stage(WithStatus(context.Background(), bar), testRef("abc"), "media", "abc.mp3")
	require.NoError(t, err)
	assert.Equal(t, 1, source.audioCalls)
	assert.Len(t, api.puts["media/abc.mp3"], 16)
	assert.Equal(t, "audio/mpeg", api.types["media/abc.mp3"])
	assert.Equal(t, []string{"Downloading audio...", "Uploading audio..."}, bar.descriptions)
	assert.NoFileExists(t, source.lastAudio, "local audio is removed after upload")
}

func TestS3StagerFailures(t *testing.T) {
	t.Run("head", func(t *testing.T) {
		api := &fakeS3{headErr: errors.New("access denied")}
		source := &fakeSource{dir: t.TempDir(), audioSize: 16}
		err := NewS3Stager(api, source, nil).Stage(context.Background(), testRef("abc"), "media", "abc.mp3")
		assert.ErrorIs(t, err, ErrTranscriptionFailed)
		assert.Zero(t, source.audioCalls)
	})

	t.Run("download", func(t *testing.T) {
		api := &fakeS3{headErr: &s3types.NotFound{}}
		source := &fakeSource{dir: t.TempDir(), audioErr: Wrap(ErrDownloadFailed, "yt-dlp", nil)}
		err := NewS3Stager(api, source, nil).Stage(context.Background(), testRef("abc"), "media", "abc.mp3")
		assert.ErrorIs(t, err, ErrDownloadFailed)
		assert.Empty(t, api.puts)
	})

	t.Run("empty audio", func(t *testing.T) {
		api := &fakeS3{headErr: &s3types.NotFound{}}
		source := &fakeSource{dir: t.TempDir()}
		err := NewS3Stager(api, source, nil).Stage(context.Background(), testRef("abc"), "media", "abc.mp3")
		assert.ErrorIs(t, err, ErrDownloadFailed)
		assert.Empty(t, api.puts)
	})

	t.Run("upload", func(t *testing.T) {
		api := &fakeS3{headErr: &s3types.NotFound{}, putErr: errors.New("slow down")}
		source := &fakeSource{dir: t.TempDir(), audioSize: 16}
		err := NewS3Stager(api, source, nil).Stage(context.Background(), testRef("abc"), "media", "abc.mp3")
		assert.ErrorIs(t, err, ErrTranscriptionFailed)
	})
}
