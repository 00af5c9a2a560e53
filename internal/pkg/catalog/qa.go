package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// QAPair is one question/answer row of the support knowledge base.
type QAPair struct {
	Question string
	Answer   string
}

func columnIndex(header []string, names ...string) int {
	for i, h := range header {
		for _, n := range names {
			if strings.TrimSpace(h) == n {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// JoinQA joins a questions file (QuestionID, QuestionText) with an answers
// file (QuestionID, AnswerText). Questions without an answer are dropped and
// the output keeps question file order. A question with several answers
// yields one pair per answer.
func JoinQA(questions, answers io.Reader) ([]QAPair, error) {
	qr := NewReader(questions)
	qHeader, err := ReadHeader(qr)
	if err != nil {
		return nil, fmt.Errorf("questions: %w", err)
	}
	qID, qText := columnIndex(qHeader, "QuestionID"), columnIndex(qHeader, "QuestionText")
	if qID < 0 || qText < 0 {
		return nil, errors.New("questions: QuestionID and QuestionText columns are required")
	}

	ar := NewReader(answers)
	aHeader, err := ReadHeader(ar)
	if err != nil {
		return nil, fmt.Errorf("answers: %w", err)
	}
	aID, aText := columnIndex(aHeader, "QuestionID"), columnIndex(aHeader, "AnswerText")
	if aID < 0 || aText < 0 {
		return nil, errors.New("answers: QuestionID and AnswerText columns are required")
	}

	byID := make(map[string][]string)
	if err := eachRow(ar, func(row []string) {
		id := cell(row, aID)
		byID[id] = append(byID[id], cell(row, aText))
	}); err != nil {
		return nil, fmt.Errorf("answers: %w", err)
	}

	var pairs []QAPair
	if err := eachRow(qr, func(row []string) {
		q := cell(row, qText)
		for _, a := range byID[cell(row, qID)] {
			pairs = append(pairs, QAPair{Question: q, Answer: a})
		}
	}); err != nil {
		return nil, fmt.Errorf("questions: %w", err)
	}
	return pairs, nil
}

// ReadQAPairs reads a single Q&A file with question/Question and
// answer/Answer columns. Rows with an empty question or answer are skipped.
func ReadQAPairs(r io.Reader) ([]QAPair, error) {
	cr := NewReader(r)
	header, err := ReadHeader(cr)
	if err != nil {
		return nil, err
	}
	qi, ai := columnIndex(header, "question", "Question"), columnIndex(header, "answer", "Answer")
	if qi < 0 || ai < 0 {
		return nil, errors.New("question and answer columns are required")
	}

	var pairs []QAPair
	err = eachRow(cr, func(row []string) {
		q, a := cell(row, qi), cell(row, ai)
		if q != "" && a != "" {
			pairs = append(pairs, QAPair{Question: q, Answer: a})
		}
	})
	return pairs, err
}

// WriteQAPairs writes a question,answer CSV with a header row.
func WriteQAPairs(w io.Writer, pairs []QAPair) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"question", "answer"}); err != nil {
		return err
	}
	for _, p := range pairs {
		if err := cw.Write([]string{p.Question, p.Answer}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func eachRow(cr *csv.Reader, fn func([]string)) error {
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		fn(row)
	}
}
