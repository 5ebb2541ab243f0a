package dataset

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-bi/pkg/logging"
)

func fixturePath() string {
	return filepath.Join("..", "..", "testdata", "clinic.json")
}

func TestFileSourceLoadsFixture(t *testing.T) {
	src := NewFileSource(fixturePath(), logging.New("error"))
	assert.Equal(t, "file", src.Name())

	d, err := src.Load(context.Background())
	require.NoError(t, err)

	counts := d.Counts()
	assert.Equal(t, 4, counts["patients"])
	assert.Equal(t, 3, counts["locations"])
	assert.Equal(t, 5, counts["appointments"])
	assert.Equal(t, 3, counts["chairs"], "non-object chair must be skipped")

	// string location id and non-numeric duration are tolerated
	assert.Equal(t, ID(2), d.Patients[3].LocationID)
	assert.Equal(t, Number(0), d.Appointments[4].Duration)
	assert.Equal(t, Number(0), d.Bills[4].Gross)
}

func TestFileSourceMissingFile(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.json"), nil).Load(context.Background())
	require.Error(t, err)

	_, err = NewFileSource("", nil).Load(context.Background())
	require.Error(t, err)
}

type fakeS3 struct {
	objects map[string][]byte
	gotKey  string
}

func (f *fakeS3) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gotKey = *input.Bucket + "/" + *input.Key
	data, ok := f.objects[*input.Key]
	if !ok {
		return nil, errors.New("NoSuchKey: key not found")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3SourceLoads(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{
		"datasets/data.json": []byte(`{"locations":[{"id":1,"name":"Milano Centro"}]}`),
	}}
	src := NewS3Source(client, "clinic-bucket", "datasets/data.json", nil)

	d, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "clinic-bucket/datasets/data.json", client.gotKey)
	require.Len(t, d.Locations, 1)
	assert.Equal(t, Text("Milano Centro"), d.Locations[0].Name)
	assert.Empty(t, d.Patients)
}

func TestS3SourceErrors(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{"bad.json": []byte(`[1,2]`)}}

	_, err := NewS3Source(client, "b", "missing.json", nil).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://b/missing.json")

	_, err = NewS3Source(client, "b", "bad.json", nil).Load(context.Background())
	require.Error(t, err)

	_, err = NewS3Source(nil, "", "", nil).Load(context.Background())
	require.Error(t, err)
}

func TestStaticSource(t *testing.T) {
	d := &Dataset{Patients: []Patient{{ID: 1}}}
	got, err := NewStaticSource(d).Load(context.Background())
	require.NoError(t, err)
	assert.Same(t, d, got)

	_, err = NewStaticSource(nil).Load(context.Background())
	require.Error(t, err)
}
