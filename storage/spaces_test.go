package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = data
	return &s3.PutObjectOutput{}, f.err
}

func TestUploadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "themes.csv")
	if err := os.WriteFile(path, []byte("action\n0.7\n"), 0644); err != nil {
		t.Fatal(err)
	}

	putter := &fakePutter{}
	client := &SpacesClient{client: putter, bucket: "results", logger: logrus.New()}

	url, err := client.UploadFile(context.Background(), "themes/run.csv", path)
	if err != nil {
		t.Fatalf("UploadFile() error = %v", err)
	}
	if url != "s3://results/themes/run.csv" {
		t.Errorf("UploadFile() url = %q", url)
	}
	if aws.ToString(putter.input.Bucket) != "results" || aws.ToString(putter.input.Key) != "themes/run.csv" {
		t.Errorf("unexpected input: bucket=%s key=%s", aws.ToString(putter.input.Bucket), aws.ToString(putter.input.Key))
	}
	if aws.ToString(putter.input.ContentType) != "text/csv" {
		t.Errorf("ContentType = %s", aws.ToString(putter.input.ContentType))
	}
	if string(putter.body) != "action\n0.7\n" {
		t.Errorf("body = %q", putter.body)
	}
}

func TestUploadFileErrors(t *testing.T) {
	client := &SpacesClient{client: &fakePutter{err: errors.New("denied")}, bucket: "results", logger: logrus.New()}

	if _, err := client.UploadFile(context.Background(), "k", filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "themes.csv")
	_ = os.WriteFile(path, []byte("x"), 0644)
	if _, err := client.UploadFile(context.Background(), "k", path); err == nil {
		t.Error("expected error from PutObject")
	}
}

func TestURL(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
	}{
		{"", "s3://results/themes/a.csv"},
		{"https://nyc3.digitaloceanspaces.com/", "https://nyc3.digitaloceanspaces.com/results/themes/a.csv"},
	}
	for _, tt := range tests {
		client := &SpacesClient{bucket: "results", endpoint: trimEndpoint(tt.endpoint)}
		if got := client.URL("themes/a.csv"); got != tt.want {
			t.Errorf("URL() = %s, want %s", got, tt.want)
		}
	}
}

func TestNewSpacesClientRequiresBucket(t *testing.T) {
	if _, err := NewSpacesClient(context.Background(), SpacesConfig{}, nil); err == nil {
		t.Error("expected error without bucket")
	}
}
