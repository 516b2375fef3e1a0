package osiris

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx"
	"gonum.org/v1/gonum/spatial/r3"
)

func ConnectToDatabase(user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	db, err := sqlx.Connect("mysql", dbURI)
	return db, err
}

type ChannelPositionEntry struct {
	UnitID    int     `db:"UnitID"`
	ChannelID int     `db:"ChannelID"`
	X         float64 `db:"X"`
	Y         float64 `db:"Y"`
	Z         float64 `db:"Z"`
	Gain      float64 `db:"Gain"`
}

// Calibration holds the charge to MeV divisors valid for a run.
type Calibration struct {
	Prompt  float64 `db:"PromptDivisor"`
	Delayed float64 `db:"DelayedDivisor"`
}

// LoadGeometryFromDB builds the geometry map valid for runNumber from the
// ChannelPositions table.
func LoadGeometryFromDB(db *sqlx.DB, runNumber int) (*GeometryMap, error) {
	query := "SELECT UnitID, ChannelID, X, Y, Z, Gain FROM ChannelPositions WHERE MinRun <= %d and MaxRun >= %d ORDER BY UnitID, ChannelID"
	query = fmt.Sprintf(query, runNumber, runNumber)

	if verbosity > 0 {
		logger.Info("Channel positions read from DB", "database")
	}
	if verbosity > 2 {
		message := fmt.Sprintf("Query: %s", query)
		logger.Info(message, "database")
	}

	rows, err := db.Queryx(query)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	geometry := NewGeometryMap()
	for rows.Next() {
		result := ChannelPositionEntry{}
		err := rows.StructScan(&result)
		if err != nil {
			return nil, fmt.Errorf("error scanning DB row: %w", err)
		}
		geometry.Add(result.UnitID, result.ChannelID, ChannelPosition{
			Position: r3.Vec{X: result.X, Y: result.Y, Z: result.Z},
			Gain:     result.Gain,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading DB rows: %w", err)
	}
	if geometry.Len() == 0 {
		return nil, fmt.Errorf("no channel positions for run %d: %w", runNumber, ErrNotFound)
	}
	return geometry, nil
}

// LoadCalibrationFromDB returns the energy calibration valid for runNumber.
func LoadCalibrationFromDB(db *sqlx.DB, runNumber int) (Calibration, error) {
	query := "SELECT PromptDivisor, DelayedDivisor FROM EnergyCalibration WHERE MinRun <= %d and MaxRun >= %d ORDER BY MinRun DESC"
	query = fmt.Sprintf(query, runNumber, runNumber)

	if verbosity > 2 {
		message := fmt.Sprintf("Query: %s", query)
		logger.Info(message, "database")
	}

	calibrations := []Calibration{}
	if err := db.Select(&calibrations, query); err != nil {
		return Calibration{}, fmt.Errorf("error querying database: %w", err)
	}
	if len(calibrations) == 0 {
		return Calibration{}, fmt.Errorf("no energy calibration for run %d: %w", runNumber, ErrNotFound)
	}
	if verbosity > 0 {
		message := fmt.Sprintf("Energy calibration for run %d: prompt %v, delayed %v",
			runNumber, calibrations[0].Prompt, calibrations[0].Delayed)
		logger.Info(message, "database")
	}
	return calibrations[0], nil
}

// LoadDatabase replaces the geometry and calibration of config with the
// values stored for config.RunNumber.
func LoadDatabase(db *sqlx.DB, config *Configuration) (*GeometryMap, error) {
	geometry, err := LoadGeometryFromDB(db, config.RunNumber)
	if err != nil {
		errMessage := fmt.Errorf("error getting channel positions from database: %w", err)
		logger.Error(errMessage.Error())
		return nil, errMessage
	}
	calibration, err := LoadCalibrationFromDB(db, config.RunNumber)
	if err != nil {
		errMessage := fmt.Errorf("error getting energy calibration from database: %w", err)
		logger.Error(errMessage.Error())
		return nil, errMessage
	}
	config.PromptCalibration = calibration.Prompt
	config.DelayedCalibration = calibration.Delayed
	return geometry, nil
}
