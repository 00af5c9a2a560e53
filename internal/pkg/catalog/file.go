package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes path through a temporary file in the same
// directory and renames it into place once write succeeds. The original
// file mode is kept when path already exists.
func WriteFileAtomic(path string, write func(w io.Writer) error) (err error) {
	mode := os.FileMode(0o644)
	if fi, statErr := os.Stat(path); statErr == nil {
		mode = fi.Mode().Perm()
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return statErr
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), mode); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// AppendQAFiles joins questionsPath with answersPath, adds the pairs of
// every single-file Q&A CSV in extra, and appends the result to outPath.
// Rows already in outPath are kept. It returns the number of pairs added.
func AppendQAFiles(outPath, questionsPath, answersPath string, extra ...string) (int, error) {
	var existing []QAPair
	if f, err := os.Open(outPath); err == nil {
		existing, err = ReadQAPairs(f)
		_ = f.Close()
		if err != nil {
			return 0, fmt.Errorf("%s: %w", outPath, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return 0, err
	}

	var added []QAPair
	if questionsPath != "" || answersPath != "" {
		pairs, err := joinQAFiles(questionsPath, answersPath)
		if err != nil {
			return 0, err
		}
		added = append(added, pairs...)
	}
	for _, path := range extra {
		pairs, err := readQAFile(path)
		if err != nil {
			return 0, err
		}
		added = append(added, pairs...)
	}

	all := append(existing, added...)
	if err := WriteFileAtomic(outPath, func(w io.Writer) error {
		return WriteQAPairs(w, all)
	}); err != nil {
		return 0, err
	}
	return len(added), nil
}

func joinQAFiles(questionsPath, answersPath string) ([]QAPair, error) {
	if questionsPath == "" || answersPath == "" {
		return nil, errors.New("questions and answers files must be given together")
	}
	q, err := os.Open(questionsPath)
	if err != nil {
		return nil, err
	}
	defer q.Close()
	a, err := os.Open(answersPath)
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return JoinQA(q, a)
}

func readQAFile(path string) ([]QAPair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pairs, err := ReadQAPairs(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pairs, nil
}

// ConvertFile rewrites the price columns of a CSV file in place.
func (c *PriceConverter) ConvertFile(path string) (*ConvertStats, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	var stats *ConvertStats
	err = WriteFileAtomic(path, func(w io.Writer) error {
		var convErr error
		stats, convErr = c.ConvertCSV(in, w)
		return convErr
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return stats, nil
}
