package catalog

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "out.csv", "old\n")

	require.NoError(t, WriteFileAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "new\n")
		return err
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new\n", string(data))

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm(), "应保留原文件权限")
}

func TestWriteFileAtomic_FailureKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "out.csv", "old\n")

	err := WriteFileAtomic(path, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return errors.New("boom")
	})
	require.EqualError(t, err, "boom")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "临时文件应被清理")
}

func TestAppendQAFiles(t *testing.T) {
	dir := t.TempDir()
	questions := writeTestFile(t, dir, "questions.csv", "QuestionID,QuestionText\nq1,Is it cotton?\nq2,No answer\n")
	answers := writeTestFile(t, dir, "answers.csv", "QuestionID,AnswerText\nq1,Yes\n")
	single := writeTestFile(t, dir, "single.csv", "Question,Answer\nReturn window?,30 days\n,skipped\n")
	out := writeTestFile(t, dir, "qa.csv", "question,answer\nShipping?,Free\n")

	added, err := AppendQAFiles(out, questions, answers, single)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "question,answer\nShipping?,Free\nIs it cotton?,Yes\nReturn window?,30 days\n", string(data))
}

func TestAppendQAFiles_NewOutput(t *testing.T) {
	dir := t.TempDir()
	single := writeTestFile(t, dir, "single.csv", "question,answer\nSize?,M\n")
	out := filepath.Join(dir, "qa.csv")

	added, err := AppendQAFiles(out, "", "", single)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "question,answer\nSize?,M\n", string(data))
}

func TestAppendQAFiles_UnpairedInputs(t *testing.T) {
	dir := t.TempDir()
	questions := writeTestFile(t, dir, "questions.csv", "QuestionID,QuestionText\n")

	_, err := AppendQAFiles(filepath.Join(dir, "qa.csv"), questions, "")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "together"))
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "products.csv", "Product Name,Price,MRP\nSaree,\"₹2,299\",na\n")

	stats, err := NewPriceConverter(0, "").ConvertFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Rows)
	assert.Equal(t, 1, stats.Converted)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Product Name,Price,MRP\nSaree,£21.84,na\n", string(data))
}
