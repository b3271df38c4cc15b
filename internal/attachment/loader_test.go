package attachment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_NeitherPathNorContentIsSkipped(t *testing.T) {
	result, err := Load(Input{}, t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestLoad_InlineContentUsesDefaultFilename(t *testing.T) {
	result, err := Load(Input{Content: []byte("hello")}, t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, defaultFilename, result.Filename)
	assert.Equal(t, "base64", result.Encoding)
	assert.Equal(t, []byte("hello"), result.Content)
}

func TestLoad_InlineEmptyContentIsValidZeroByteAttachment(t *testing.T) {
	result, err := Load(Input{Content: []byte{}, Filename: "empty.txt"}, t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "empty.txt", result.Filename)
	assert.Equal(t, []byte{}, result.Content)
}

func TestLoad_InlineContentHonorsExplicitEncoding(t *testing.T) {
	result, err := Load(Input{Content: []byte("x"), Encoding: "7bit"}, t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "7bit", result.Encoding)
}

func TestLoad_PathTakesPrecedenceOverContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.csv")
	require.NoError(t, os.WriteFile(path, []byte("from,path"), 0o644))

	result, err := Load(Input{Path: "report.csv", Content: []byte("from,content")}, dir)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, []byte("from,path"), result.Content)
	assert.Equal(t, "report.csv", result.Filename)
}

func TestLoad_RelativePathResolvesAgainstCwd(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("data"), 0o644))

	result, err := Load(Input{Path: "notes.txt"}, dir)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, []byte("data"), result.Content)
}

func TestLoad_AbsolutePathIgnoresCwd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "abs.txt")
	require.NoError(t, os.WriteFile(path, []byte("abs"), 0o644))

	result, err := Load(Input{Path: path}, "/somewhere/else")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, []byte("abs"), result.Content)
}

func TestLoad_MissingPathReturnsAttachmentError(t *testing.T) {
	_, err := Load(Input{Path: "does-not-exist.txt"}, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoad_DirectoryPathIsRejected(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "subdir")
	require.NoError(t, os.Mkdir(sub, 0o755))

	_, err := Load(Input{Path: "subdir"}, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory")
}

func TestLoad_FilenameWithoutExtensionBorrowsFromPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.pdf"), []byte("pdf"), 0o644))

	result, err := Load(Input{Path: "report.pdf", Filename: "renamed"}, dir)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "renamed.pdf", result.Filename)
}
