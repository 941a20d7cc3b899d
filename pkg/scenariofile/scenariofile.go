// Package scenariofile loads test cases from YAML. A file holds one test case
// per YAML document:
//
//	id: login
//	name: Login flow
//	bundle_id: com.example.app
//	steps:
//	  - type: launch_app
//	  - type: wait_for_element
//	    element: {label: Sign in}
//	  - type: full_page_checkpoint
//	    name: login_screen
package scenariofile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/mslinn/simsnap/pkg/scenario"
)

// Parse decodes every document in data. Unknown keys are rejected so a typo in
// a step field does not silently change behaviour.
func Parse(data []byte) ([]scenario.TestCase, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cases []scenario.TestCase
	for doc := 1; ; doc++ {
		var tc scenario.TestCase
		err := dec.Decode(&tc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}
		if tc.ID == "" && tc.Name == "" && len(tc.Steps) == 0 {
			continue // empty document
		}
		if tc.Name == "" {
			tc.Name = tc.ID
		}
		if err := tc.Validate(); err != nil {
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}
		cases = append(cases, tc)
	}
	return cases, nil
}

// LoadFile reads and parses one scenario file.
func LoadFile(path string) ([]scenario.TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cases, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cases, nil
}

// Load reads every path, expanding directories to their *.yaml and *.yml files
// in name order. Test case ids must be unique across everything loaded.
func Load(paths ...string) ([]scenario.TestCase, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := yamlFiles(p)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}

	var all []scenario.TestCase
	seen := map[string]string{}
	for _, f := range files {
		cases, err := LoadFile(f)
		if err != nil {
			return nil, err
		}
		for _, tc := range cases {
			if prev, dup := seen[tc.ID]; dup {
				return nil, fmt.Errorf("%w: duplicate id %q in %s (first defined in %s)",
					scenario.ErrInvalidTestCase, tc.ID, f, prev)
			}
			seen[tc.ID] = f
			all = append(all, tc)
		}
	}
	return all, nil
}

func yamlFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// Filter keeps the test cases whose id is in ids. An empty ids keeps everything.
func Filter(cases []scenario.TestCase, ids []string) []scenario.TestCase {
	if len(ids) == 0 {
		return cases
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []scenario.TestCase
	for _, tc := range cases {
		if want[tc.ID] {
			out = append(out, tc)
		}
	}
	return out
}
