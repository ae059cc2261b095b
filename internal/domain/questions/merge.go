// Package questions merges question bank files into the single file the quiz app loads.
package questions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/forPelevin/harvester/internal/infra/fsx"
	"github.com/forPelevin/harvester/internal/types"
)

// Duplicate is a question dropped because an earlier file already had its id.
type Duplicate struct {
	QuestionID int
	File       string
	KeptFrom   string
}

type MergeResult struct {
	Questions  []types.Question
	Files      []string
	Duplicates []Duplicate
}

// MergeDir reads every *.json file directly under dir (sorted by name). Each file holds a question
// array or a single question object. Ids are deduplicated (first file wins) and the result is
// sorted by id.
func MergeDir(dir string) (MergeResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return MergeResult{}, fmt.Errorf("read questions dir: %w", err)
	}

	var res MergeResult
	seen := map[int]string{}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		qs, err := readFile(path)
		if err != nil {
			return MergeResult{}, err
		}
		res.Files = append(res.Files, e.Name())
		for _, q := range qs {
			if first, ok := seen[q.QuestionID]; ok {
				res.Duplicates = append(res.Duplicates, Duplicate{QuestionID: q.QuestionID, File: e.Name(), KeptFrom: first})
				continue
			}
			seen[q.QuestionID] = e.Name()
			res.Questions = append(res.Questions, q)
		}
	}

	sort.SliceStable(res.Questions, func(i, j int) bool {
		return res.Questions[i].QuestionID < res.Questions[j].QuestionID
	})
	return res, nil
}

func readFile(path string) ([]types.Question, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, nil
	}

	if b[0] == '[' {
		var qs []types.Question
		if err := json.Unmarshal(b, &qs); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
		return qs, nil
	}
	var q types.Question
	if err := json.Unmarshal(b, &q); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return []types.Question{q}, nil
}

// WriteFile writes qs as an indented JSON array, replacing path atomically.
func WriteFile(path string, qs []types.Question) error {
	if qs == nil {
		qs = []types.Question{}
	}
	b, err := json.MarshalIndent(qs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomic(filepath.Dir(path), filepath.Base(path), b)
}
