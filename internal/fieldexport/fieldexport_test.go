package fieldexport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/formsync/internal/activecampaign"
)

var generated = time.Date(2025, 11, 19, 8, 30, 0, 0, time.UTC)

func sampleInventory() *Inventory {
	return Build("demo",
		[]activecampaign.RemoteField{
			{ID: "12", Title: "Interests", Type: "checkbox"},
			{ID: "2", Title: "City", Type: "text", PersTag: "CITY"},
		},
		[]activecampaign.RemoteTag{
			{ID: "30", Tag: "Review", TagType: "contact"},
			{ID: "4", Tag: "Newsletter", TagType: "contact"},
		},
		generated)
}

func TestBuild_SortsAndNamesFields(t *testing.T) {
	inv := sampleInventory()

	require.Len(t, inv.Fields, 2)
	assert.Equal(t, "2", inv.Fields[0].ID)
	assert.Equal(t, "acf_2", inv.Fields[0].SubmissionName)
	assert.Equal(t, "acf_12", inv.Fields[1].SubmissionName)
	assert.Equal(t, []Tag{{ID: "4", Name: "Newsletter", Type: "contact"}, {ID: "30", Name: "Review", Type: "contact"}}, inv.Tags)
}

func TestBuild_Empty(t *testing.T) {
	inv := Build("demo", nil, nil, generated)
	body, err := inv.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(body), `"fields": []`)
	assert.Contains(t, string(body), `"tags": []`)
}

func TestIDLess(t *testing.T) {
	assert.True(t, idLess("2", "10"))
	assert.False(t, idLess("10", "2"))
	assert.True(t, idLess("9", "abc"))
	assert.False(t, idLess("abc", "9"))
	assert.True(t, idLess("abc", "abd"))
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleInventory().WriteTable(&buf))

	out := buf.String()
	assert.Contains(t, out, "FORM FIELD NAME")
	assert.Regexp(t, `2\s+City\s+text\s+acf_2`, out)
	assert.Less(t, strings.Index(out, "acf_2"), strings.Index(out, "acf_12"))
	assert.Contains(t, out, "Newsletter")
}

func TestFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fields.json")

	got, err := FileWriter{Path: path}.Write(context.Background(), sampleInventory())
	require.NoError(t, err)
	assert.Equal(t, path, got)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var inv Inventory
	require.NoError(t, json.Unmarshal(raw, &inv))
	assert.Equal(t, "demo", inv.Account)
	assert.True(t, generated.Equal(inv.GeneratedAt))
	assert.Len(t, inv.Fields, 2)
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Writer(t *testing.T) {
	client := &fakeS3{}
	w := NewS3WriterWithClient(client, "inventory", "/activecampaign/")

	loc, err := w.Write(context.Background(), sampleInventory())
	require.NoError(t, err)

	assert.Equal(t, "s3://inventory/activecampaign/fields-20251119T083000Z.json", loc)
	assert.Equal(t, "inventory", aws.ToString(client.input.Bucket))
	assert.Equal(t, "application/json", aws.ToString(client.input.ContentType))
	assert.Contains(t, string(client.body), `"submission_name": "acf_12"`)
}

func TestS3Writer_NoPrefix(t *testing.T) {
	client := &fakeS3{}
	loc, err := NewS3WriterWithClient(client, "inventory", "").Write(context.Background(), sampleInventory())
	require.NoError(t, err)
	assert.Equal(t, "s3://inventory/fields-20251119T083000Z.json", loc)
}

func TestS3Writer_Error(t *testing.T) {
	client := &fakeS3{err: errors.New("access denied")}
	_, err := NewS3WriterWithClient(client, "inventory", "x").Write(context.Background(), sampleInventory())
	assert.ErrorContains(t, err, "access denied")
}
