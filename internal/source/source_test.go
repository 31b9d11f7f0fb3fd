package source

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"
	godbf "github.com/recruitdata/go-dbf"
	"github.com/recruitdata/go-dbf/internal/dbftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	got     *s3.GetObjectInput
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	f.got = in
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

var fields = []dbftest.Field{dbftest.C("USER", 4), dbftest.C("NAME", 8)}

func TestParseS3(t *testing.T) {
	bucket, key, err := ParseS3("s3://exams/bcs44/tab_fin.DBF")
	require.NoError(t, err)
	assert.Equal(t, "exams", bucket)
	assert.Equal(t, "bcs44/tab_fin.DBF", key)

	for _, bad := range []string{"s3://exams", "s3:///key", "s3://exams/", "/tmp/a.dbf"} {
		_, _, err := ParseS3(bad)
		assert.Error(t, err, bad)
	}
}

func TestOpen_Local(t *testing.T) {
	path := dbftest.WriteFile(t, t.TempDir(), "a.dbf", fields, []dbftest.Record{dbftest.R("u1", "Alice")})
	o := &Opener{}
	dbf, err := o.Open(context.Background(), path)
	require.NoError(t, err)
	defer dbf.Close()

	rows, _, err := dbf.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Alice", rows[0]["NAME"].Str)
}

func TestOpen_LocalMissing(t *testing.T) {
	o := &Opener{}
	_, err := o.Open(context.Background(), "/nonexistent/a.dbf")
	assert.IsType(t, &godbf.FatalIOError{}, err)
}

func TestOpen_S3(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{
		"exams/a.dbf": dbftest.Build(t, fields, []dbftest.Record{dbftest.R("u1", "Alice"), dbftest.R("u2", "Bob")}),
	}}
	o := &Opener{S3: fake}
	dbf, err := o.Open(context.Background(), "s3://exams/a.dbf", godbf.OptSelect("NAME"))
	require.NoError(t, err)
	defer dbf.Close()

	assert.Equal(t, "a.dbf", *fake.got.Key)
	rows, _, err := dbf.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, godbf.Row{"NAME": godbf.TextValue("Bob")}, rows[1])
}

func TestOpen_S3Missing(t *testing.T) {
	o := &Opener{S3: &fakeS3{}}
	_, err := o.Open(context.Background(), "s3://exams/nope.dbf")
	ioErr, ok := err.(*godbf.FatalIOError)
	require.True(t, ok, "got %T", err)
	assert.Equal(t, "s3://exams/nope.dbf", ioErr.Path)
}
