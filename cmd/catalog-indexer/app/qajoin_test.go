package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQAJoinCommand(t *testing.T) {
	dir := t.TempDir()
	questions := filepath.Join(dir, "questions.csv")
	answers := filepath.Join(dir, "answers.csv")
	out := filepath.Join(dir, "qa.csv")
	require.NoError(t, os.WriteFile(questions, []byte("QuestionID,QuestionText\nq1,Is it silk?\n"), 0o600))
	require.NoError(t, os.WriteFile(answers, []byte("QuestionID,AnswerText\nq1,Art silk\n"), 0o600))

	cmd := newQAJoinCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"--questions", questions, "--answers", answers, "-o", out})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, stdout.String(), "appended 1 pairs")
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "question,answer\nIs it silk?,Art silk\n", string(data))
}

func TestQAJoinCommand_NoInput(t *testing.T) {
	cmd := newQAJoinCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"-o", filepath.Join(t.TempDir(), "qa.csv")})
	assert.Error(t, cmd.Execute())
}

func TestNewAppRequiresFiles(t *testing.T) {
	a := NewApp()
	a.Command().SetOut(&bytes.Buffer{})
	a.Command().SetErr(&bytes.Buffer{})
	a.Command().SetArgs([]string{})
	assert.Error(t, a.Command().Execute())
}
