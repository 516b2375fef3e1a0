package osiris

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	colRun       = "run"
	colDate      = "date"
	colIndex     = "index"
	colCharge    = "charge"
	colSlot      = "slot"
	colRiseTime  = "WF_RiseTime"
	colTrgTime   = "trgTime"
	colChannelID = "channelID"
	colUnitID    = "GCUID"
	colX         = "x_PMT"
	colY         = "y_PMT"
	colZ         = "z_PMT"
	colLive      = "LivePMTs"
	colGain      = "gain"
	colOD        = "OD"
	colTotal     = "TotalPMTs"
)

// HitColumns is the column order written by HitWriter and assumed when a
// table carries no header.
var HitColumns = []string{
	colRun, colDate, colIndex, colCharge, colSlot, colRiseTime, colTrgTime, colChannelID,
	colUnitID, colX, colY, colZ, colLive, colGain, colOD, colTotal,
}

var requiredHitColumns = []string{
	colIndex, colCharge, colRiseTime, colTrgTime, colChannelID, colUnitID, colX, colY, colZ, colLive,
}

// HitWriter streams hits to a tab-separated table through one buffered
// handle. Nothing appears at the target path until Commit.
type HitWriter struct {
	pending *PendingFile
	file    *os.File
	buf     *bufio.Writer
	count   int
}

func NewHitWriter(filename string) (*HitWriter, error) {
	pending, err := NewPendingFile(filename)
	if err != nil {
		return nil, err
	}
	file, err := os.Create(pending.Path)
	if err != nil {
		return nil, &ErrOpenFile{Filename: pending.Path, Err: err}
	}
	w := &HitWriter{pending: pending, file: file, buf: bufio.NewWriter(file)}
	if _, err := w.buf.WriteString(strings.Join(HitColumns, "\t") + "\n"); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

func (w *HitWriter) WriteHit(h Hit) error {
	fields := []string{
		h.RunTag,
		h.Date,
		strconv.FormatInt(h.EventIndex, 10),
		formatFloat(h.Charge),
		strconv.Itoa(h.Slot),
		formatRise(h.RiseIndex),
		formatFloat(h.TriggerTime),
		strconv.Itoa(h.ChannelID),
		strconv.Itoa(h.UnitID),
		formatFloat(h.Position.X),
		formatFloat(h.Position.Y),
		formatFloat(h.Position.Z),
		strconv.Itoa(h.LiveChannels),
		formatFloat(h.Gain),
		formatBool(h.OuterDetector),
		strconv.Itoa(h.TotalChannels),
	}
	_, err := w.buf.WriteString(strings.Join(fields, "\t") + "\n")
	if err != nil {
		return fmt.Errorf("error writing hit of event %d: %w", h.EventIndex, err)
	}
	w.count++
	return nil
}

func (w *HitWriter) Count() int {
	return w.count
}

// Commit flushes, closes and moves the table to its final path.
func (w *HitWriter) Commit() error {
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("error flushing hit table: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("error closing hit table: %w", err)
	}
	w.file = nil
	return w.pending.Commit()
}

// Close releases the handle and drops the table unless it was committed.
func (w *HitWriter) Close() error {
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
	return w.pending.Discard()
}

func formatRise(idx int) string {
	if idx == NoRiseIndex {
		return "None"
	}
	return strconv.Itoa(idx)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func ReadHitFile(filename string) ([]Hit, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	defer file.Close()

	hits, err := ReadHits(file)
	if err != nil {
		return nil, fmt.Errorf("error reading hit table %s: %w", filename, err)
	}
	if verbosity > 0 {
		message := fmt.Sprintf("Read %d hits from %s", len(hits), filename)
		logger.Info(message, "hits")
	}
	return hits, nil
}

// ReadHits parses a tab-separated hit table. A header line, when present, is
// detected and used to locate columns by name; otherwise HitColumns order is
// assumed. Non-finite charges are kept; the aggregator drops them.
func ReadHits(r io.Reader) ([]Hit, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var columns map[string]int
	hits := make([]Hit, 0)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")

		if columns == nil {
			if isHeader(fields) {
				var err error
				columns, err = headerColumns(fields, lineNumber)
				if err != nil {
					return nil, err
				}
				continue
			}
			columns = positionalColumns()
		}

		hit, err := parseHit(fields, columns, lineNumber)
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return hits, nil
}

// isHeader treats a first row whose event index column is not numeric as a header.
func isHeader(fields []string) bool {
	pos := indexOf(HitColumns, colIndex)
	if len(fields) <= pos {
		return true
	}
	_, err := strconv.ParseFloat(strings.TrimSpace(fields[pos]), 64)
	return err != nil
}

func headerColumns(fields []string, lineNumber int) (map[string]int, error) {
	columns := make(map[string]int, len(fields))
	for i, name := range fields {
		columns[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredHitColumns {
		if _, ok := columns[name]; !ok {
			return nil, &ErrMissingColumn{Column: name, Line: lineNumber}
		}
	}
	return columns, nil
}

func positionalColumns() map[string]int {
	columns := make(map[string]int, len(HitColumns))
	for i, name := range HitColumns {
		columns[name] = i
	}
	return columns
}

type rowParser struct {
	fields     []string
	columns    map[string]int
	lineNumber int
	err        error
}

func (p *rowParser) field(name string) (string, bool) {
	pos, ok := p.columns[name]
	if !ok {
		return "", false
	}
	if pos >= len(p.fields) {
		if p.err == nil && indexOf(requiredHitColumns, name) >= 0 {
			p.err = &ErrMissingColumn{Column: name, Line: p.lineNumber}
		}
		return "", false
	}
	return strings.TrimSpace(p.fields[pos]), true
}

func (p *rowParser) float(name string, fallback float64) float64 {
	s, ok := p.field(name)
	if !ok {
		return fallback
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if p.err == nil {
			p.err = fmt.Errorf("line %d, column %s: %w", p.lineNumber, name, err)
		}
		return fallback
	}
	return v
}

func (p *rowParser) int(name string, fallback int) int {
	v := p.float(name, float64(fallback))
	if !isFinite(v) {
		return fallback
	}
	return int(v)
}

func (p *rowParser) rise() int {
	s, ok := p.field(colRiseTime)
	if !ok || s == "" || s == "None" {
		return NoRiseIndex
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return NoRiseIndex
	}
	return int(v)
}

func (p *rowParser) text(name string) string {
	s, _ := p.field(name)
	return s
}

func parseHit(fields []string, columns map[string]int, lineNumber int) (Hit, error) {
	p := &rowParser{fields: fields, columns: columns, lineNumber: lineNumber}
	hit := Hit{
		RunTag:      p.text(colRun),
		Date:        p.text(colDate),
		EventIndex:  int64(p.int(colIndex, 0)),
		Charge:      p.float(colCharge, math.NaN()),
		Slot:        p.int(colSlot, 0),
		RiseIndex:   p.rise(),
		TriggerTime: p.float(colTrgTime, math.NaN()),
		ChannelID:   p.int(colChannelID, 0),
		UnitID:      p.int(colUnitID, 0),
		Position: r3.Vec{
			X: p.float(colX, math.NaN()),
			Y: p.float(colY, math.NaN()),
			Z: p.float(colZ, math.NaN()),
		},
		LiveChannels:  p.int(colLive, 0),
		Gain:          p.float(colGain, 1),
		OuterDetector: p.int(colOD, 0) != 0,
	}
	hit.TotalChannels = p.int(colTotal, 2*hit.LiveChannels)
	if p.err != nil {
		return Hit{}, p.err
	}
	return hit, nil
}

func indexOf(values []string, target string) int {
	for i, v := range values {
		if v == target {
			return i
		}
	}
	return -1
}
