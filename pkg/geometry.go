package osiris

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// ChannelPosition is the physical tube position (mm) and its gain-correction factor.
type ChannelPosition struct {
	Position r3.Vec
	Gain     float64
}

// GeometryLayout gives the 0-indexed column positions in a cable map file.
// X, Y and Z are read from three consecutive columns starting at XColumn.
// When GainColumn is the last column, rows that stop just before it are
// accepted with a gain of 1.
type GeometryLayout struct {
	Columns       int
	UnitColumn    int
	ChannelColumn int
	XColumn       int
	GainColumn    int
}

var DefaultGeometryLayout = GeometryLayout{
	Columns:       15,
	UnitColumn:    1,
	ChannelColumn: 3,
	XColumn:       11,
	GainColumn:    14,
}

type channelKey struct {
	unit    int
	channel int
}

// GeometryMap is loaded once before processing and is read-only afterwards,
// so a single instance can be shared by every consumer of a run.
type GeometryMap struct {
	channels map[channelKey]ChannelPosition
	skipped  int
}

func NewGeometryMap() *GeometryMap {
	return &GeometryMap{channels: make(map[channelKey]ChannelPosition)}
}

// physicalChannel folds the high-gain/low-gain readout pair onto one tube.
func physicalChannel(channelID int) int {
	return channelID / 2
}

// Add registers a channel. Both members of a readout pair resolve to the
// same entry.
func (g *GeometryMap) Add(unitID int, channelID int, position ChannelPosition) {
	g.channels[channelKey{unit: unitID, channel: physicalChannel(channelID)}] = position
}

func (g *GeometryMap) Lookup(unitID int, channelID int) (ChannelPosition, error) {
	position, ok := g.channels[channelKey{unit: unitID, channel: physicalChannel(channelID)}]
	if !ok {
		return ChannelPosition{}, &ErrChannelNotFound{UnitID: unitID, ChannelID: channelID}
	}
	return position, nil
}

func (g *GeometryMap) Len() int {
	return len(g.channels)
}

// Skipped is the number of rows ignored while loading.
func (g *GeometryMap) Skipped() int {
	return g.skipped
}

func LoadGeometry(path string) (*GeometryMap, error) {
	return LoadGeometryWithLayout(path, DefaultGeometryLayout)
}

func LoadGeometryWithLayout(path string, layout GeometryLayout) (*GeometryMap, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &ErrOpenFile{Filename: path, Err: err}
	}
	defer file.Close()

	geometry, err := ReadGeometry(file, layout)
	if err != nil {
		return nil, fmt.Errorf("error reading geometry file %s: %w", path, err)
	}
	if verbosity > 0 {
		message := fmt.Sprintf("Loaded %d channels from %s (%d rows skipped)", geometry.Len(), path, geometry.Skipped())
		logger.Info(message, "geometry")
	}
	return geometry, nil
}

// ReadGeometry parses a tab-separated cable map. Rows with an unexpected
// column count or unparsable fields are skipped.
func ReadGeometry(r io.Reader, layout GeometryLayout) (*GeometryMap, error) {
	if err := layout.validate(); err != nil {
		return nil, err
	}

	geometry := NewGeometryMap()
	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		columns := strings.Split(line, "\t")
		if len(columns) != layout.Columns && !layout.gainMissing(len(columns)) {
			geometry.skipped++
			continue
		}
		unitID, channelID, position, err := parseGeometryRow(columns, layout)
		if err != nil {
			if verbosity > 2 {
				message := fmt.Sprintf("Skipping geometry line %d: %v", lineNumber, err)
				logger.Info(message, "geometry")
			}
			geometry.skipped++
			continue
		}
		geometry.Add(unitID, channelID, position)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return geometry, nil
}

func parseGeometryRow(columns []string, layout GeometryLayout) (int, int, ChannelPosition, error) {
	unitID, err := strconv.Atoi(strings.TrimSpace(columns[layout.UnitColumn]))
	if err != nil {
		return 0, 0, ChannelPosition{}, err
	}
	channelID, err := strconv.Atoi(strings.TrimSpace(columns[layout.ChannelColumn]))
	if err != nil {
		return 0, 0, ChannelPosition{}, err
	}

	xyz := [4]float64{3: 1}
	fields := []int{layout.XColumn, layout.XColumn + 1, layout.XColumn + 2}
	if !layout.gainMissing(len(columns)) {
		fields = append(fields, layout.GainColumn)
	}
	for i, col := range fields {
		xyz[i], err = strconv.ParseFloat(strings.TrimSpace(columns[col]), 64)
		if err != nil {
			return 0, 0, ChannelPosition{}, err
		}
	}
	position := ChannelPosition{
		Position: r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]},
		Gain:     xyz[3],
	}
	return unitID, channelID, position, nil
}

func (l GeometryLayout) gainMissing(columns int) bool {
	return l.GainColumn == l.Columns-1 && columns == l.GainColumn
}

func (l GeometryLayout) validate() error {
	for name, col := range map[string]int{
		"unit_column":    l.UnitColumn,
		"channel_column": l.ChannelColumn,
		"x_column":       l.XColumn + 2,
		"gain_column":    l.GainColumn,
	} {
		if col < 0 || col >= l.Columns {
			return &ErrInvalidConfiguration{Field: name, Value: strconv.Itoa(col)}
		}
	}
	return nil
}
