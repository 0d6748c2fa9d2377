package storage

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adfharrison1/wqdb/pkg/domain"
)

func TestHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHeader(&buf))
	assert.Equal(t, 8, buf.Len())

	header, err := ReadHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, MagicBytes, string(header.Magic[:]))
	assert.Equal(t, uint8(FormatVersion), header.Version)
}

func TestReadHeader_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		msg   string
	}{
		{"too short", []byte("WQ"), "failed to read header"},
		{"wrong magic", []byte{'G', 'O', 'D', 'B', 1, 0, 0, 0}, "invalid file format"},
		{"wrong version", []byte{'W', 'Q', 'D', 'B', 9, 0, 0, 0}, "unsupported file version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadHeader(bytes.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestEncodeDecodeStorageData(t *testing.T) {
	data := NewStorageData()
	data.SavedAt = 42
	data.Collections["elements"] = map[string]interface{}{
		"1": map[string]interface{}{
			"_id": "1",
			"WMCore.WorkQueue.DataStructs.WorkQueueElement.WorkQueueElement": map[string]interface{}{
				"RequestName": "ReqA",
				"Status":      "Running",
				"Jobs":        nil,
			},
		},
	}
	data.Views["elements"] = []domain.ViewDefinition{
		{Name: "jobStatusByRequest", Map: "WorkQueue/jobStatusByRequest"},
		{Name: "status", Field: "status"},
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeStorageData(&buf, data))

	decoded, err := DecodeStorageData(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(42), decoded.SavedAt)
	assert.Equal(t, data.Views, decoded.Views)

	doc := decoded.Collections["elements"]["1"].(map[string]interface{})
	ele := doc["WMCore.WorkQueue.DataStructs.WorkQueueElement.WorkQueueElement"].(map[string]interface{})
	assert.Equal(t, "ReqA", ele["RequestName"])
	jobs, present := ele["Jobs"]
	assert.True(t, present, "null fields must survive a round trip")
	assert.Nil(t, jobs)
}

func TestDecodeStorageData_Corrupt(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHeader(&buf))
	buf.WriteString("garbage that is not lz4")

	_, err := DecodeStorageData(&buf)
	assert.Error(t, err)
}
