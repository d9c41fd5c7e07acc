package parser

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"save-parser/internal/country"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/mmap"
)

// Markers of the save format. They are matched as line prefixes.
const (
	provinceMarker      = "-"
	terminalMarker      = "-5510"
	variablesOpenMarker = "\t\tvariables={"
)

// variableIndent is the indentation stripped from every variable-block line.
const variableIndent = 2

const maxLineSize = 4 * 1024 * 1024

type state int

const (
	outsideBlock state = iota
	insideVariableBlock
)

// Stats counts what happened during one parse.
type Stats struct {
	Lines             int
	Provinces         int
	Attributed        int
	Unowned           int
	UndecodableLines  int
	HitTerminalMarker bool
}

// Scanner runs the province state machine over one save file.
// A Scanner is single use and not safe for concurrent use.
type Scanner struct {
	table     Table
	countries country.Countries
	prov      *country.Province
	state     state
	stats     Stats
}

// NewScanner returns a scanner using table for variable-block keys.
func NewScanner(table Table) *Scanner {
	return &Scanner{
		table:     table,
		countries: make(country.Countries),
		prov:      country.NewProvince(),
	}
}

// Stats returns the counters collected so far.
func (s *Scanner) Stats() Stats { return s.stats }

// Parse reads r line by line and returns the per-country aggregate.
func (s *Scanner) Parse(r io.Reader) (country.Countries, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for sc.Scan() {
		s.stats.Lines++
		line := sc.Text()
		if !utf8.ValidString(line) {
			s.stats.UndecodableLines++
			log.Debug().Int("line", s.stats.Lines).Msg("Replacing undecodable line")
			line = ""
		}

		stop, err := s.step(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", s.stats.Lines, err)
		}
		if stop {
			s.stats.HitTerminalMarker = true
			return s.countries, nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan save file: %w", err)
	}

	s.finishProvince()
	return s.countries, nil
}

// step handles one line and reports whether the terminal marker was reached.
func (s *Scanner) step(line string) (bool, error) {
	if s.state == insideVariableBlock {
		action, err := s.variable(line)
		if err != nil {
			return false, err
		}
		if action == EndBlock {
			s.state = outsideBlock
		}
		return false, nil
	}

	switch {
	case strings.HasPrefix(line, provinceMarker):
		s.finishProvince()
		if strings.HasPrefix(line, terminalMarker) {
			return true, nil
		}
		s.prov = country.NewProvince()
		s.stats.Provinces++
	case strings.HasPrefix(line, variablesOpenMarker):
		s.state = insideVariableBlock
	}
	return false, nil
}

func (s *Scanner) variable(line string) (Action, error) {
	if len(line) < variableIndent {
		return Continue, nil
	}
	key, value, _ := strings.Cut(line[variableIndent:], "=")
	op, ok := s.table[key]
	if !ok {
		return Continue, nil
	}
	action, err := op.Apply(value, s.prov)
	if err != nil {
		return Continue, fmt.Errorf("key %q: %w", strings.TrimSpace(key), err)
	}
	return action, nil
}

func (s *Scanner) finishProvince() {
	if country.AddProvince(s.countries, s.prov) {
		s.stats.Attributed++
		return
	}
	if s.stats.Provinces > 0 {
		s.stats.Unowned++
	}
}

// Parse is a convenience wrapper running a fresh Scanner over r.
func Parse(r io.Reader, table Table) (country.Countries, Stats, error) {
	s := NewScanner(table)
	countries, err := s.Parse(r)
	return countries, s.Stats(), err
}

// ParseFile maps path read-only into memory and parses it.
func ParseFile(path string, table Table) (country.Countries, Stats, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open save file: %w", err)
	}
	defer m.Close()

	countries, stats, err := Parse(io.NewSectionReader(m, 0, int64(m.Len())), table)
	if err != nil {
		return nil, stats, fmt.Errorf("parse %s: %w", path, err)
	}

	log.Debug().
		Str("file", path).
		Int("lines", stats.Lines).
		Int("provinces", stats.Provinces).
		Int("attributed", stats.Attributed).
		Int("countries", len(countries)).
		Msg("Parsed save file")
	return countries, stats, nil
}
