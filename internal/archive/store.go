// Package archive persists processed measurements to SQLite so a
// session can be reopened without redoing raw-to-processed
// conversion. Loading an archived measurement reproduces its discharge
// and uncertainty outputs exactly.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"gopkg.in/yaml.v3"

	"github.com/openhydro/river-discharge/internal/discharge"
	"github.com/openhydro/river-discharge/internal/measurement"
	"github.com/openhydro/river-discharge/internal/movingbed"
	"github.com/openhydro/river-discharge/internal/qa"
	"github.com/openhydro/river-discharge/internal/transect"
)

// ErrNotFound is returned when the requested measurement does not
// exist in the archive.
var ErrNotFound = errors.New("archive: measurement not found")

// Store handles archive database operations.
type Store struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// New creates a store for the database at dbPath. Connections open
// lazily; the schema is initialized on first write.
func New(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

func (s *Store) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}
		if _, err = db.Exec(schemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}
		s.writeDB = db
	})
	return s.writeDB, s.writeDBErr
}

func (s *Store) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", s.dbPath))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})
	return s.readDB, s.readDBErr
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && !errors.Is(cErr, sql.ErrTxDone) && *err == nil {
		*err = cErr
	}
}

// Save archives a measurement and returns its row ID.
func (s *Store) Save(ctx context.Context, m *measurement.Measurement) (id int64, err error) {
	db, err := s.getWriteDB()
	if err != nil {
		return 0, fmt.Errorf("getting write connection: %w", err)
	}

	payload, err := yaml.Marshal(measurementPayload{
		Comments:        m.Comments,
		InitialSettings: m.InitialSettings,
		ExtrapFit:       m.ExtrapFit,
		Uncertainty:     m.Uncertainty,
		TempCheck:       m.TempCheck,
	})
	if err != nil {
		return 0, fmt.Errorf("marshaling measurement payload: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	result, err := tx.ExecContext(ctx, insertMeasurementSQL,
		m.StationName, m.StationNumber, m.Processing, m.UserRating, string(payload))
	if err != nil {
		return 0, fmt.Errorf("inserting measurement: %w", err)
	}
	if id, err = result.LastInsertId(); err != nil {
		return 0, fmt.Errorf("getting measurement ID: %w", err)
	}

	for i, t := range m.Transects {
		var doc []byte
		if doc, err = yaml.Marshal(t); err != nil {
			return 0, fmt.Errorf("marshaling transect %d: %w", i, err)
		}
		checked := 0
		if t.Checked {
			checked = 1
		}
		if _, err = tx.ExecContext(ctx, insertTransectSQL, id, i, t.FileName, checked, string(doc)); err != nil {
			return 0, fmt.Errorf("inserting transect %d: %w", i, err)
		}
	}

	for i, d := range m.Discharge {
		if d == nil {
			continue
		}
		var cells []byte
		if cells, err = yaml.Marshal(d.MiddleCells); err != nil {
			return 0, fmt.Errorf("marshaling discharge cells %d: %w", i, err)
		}
		if _, err = tx.ExecContext(ctx, insertDischargeSQL,
			id, i, d.Top, d.Middle, d.Bottom, d.Left, d.Right,
			d.IntCells, d.IntEnsembles, d.Total, d.TotalUncorrected, string(cells)); err != nil {
			return 0, fmt.Errorf("inserting discharge %d: %w", i, err)
		}
	}

	for i, mbt := range m.MBTests {
		var doc []byte
		if doc, err = yaml.Marshal(mbt); err != nil {
			return 0, fmt.Errorf("marshaling moving-bed test %d: %w", i, err)
		}
		if _, err = tx.ExecContext(ctx, insertMBTestSQL, id, i, string(doc)); err != nil {
			return 0, fmt.Errorf("inserting moving-bed test %d: %w", i, err)
		}
	}

	for kind, records := range map[string][]qa.PreMeasurement{
		"system_test":  m.SystemTests,
		"compass_cal":  m.CompassCals,
		"compass_eval": m.CompassEvals,
	} {
		for i, r := range records {
			if _, err = tx.ExecContext(ctx, insertPreMeasurementSQL,
				id, kind, i, r.TimeStamp, r.Data); err != nil {
				return 0, fmt.Errorf("inserting %s record %d: %w", kind, i, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return id, nil
}

// Load reconstructs an archived measurement. Processed series are
// rebuilt from the stored raw data and filter state, which is
// deterministic; the archived discharge and uncertainty results are
// restored verbatim.
func (s *Store) Load(ctx context.Context, id int64) (m *measurement.Measurement, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	var rating sql.NullString
	var payloadDoc string
	m = &measurement.Measurement{}
	err = db.QueryRowContext(ctx, selectMeasurementSQL, id).Scan(
		&m.StationName, &m.StationNumber, &m.Processing, &rating, &payloadDoc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning measurement: %w", err)
	}
	m.UserRating = rating.String

	var payload measurementPayload
	if err = yaml.Unmarshal([]byte(payloadDoc), &payload); err != nil {
		return nil, fmt.Errorf("unmarshaling measurement payload: %w", err)
	}
	m.Comments = payload.Comments
	m.InitialSettings = payload.InitialSettings
	m.ExtrapFit = payload.ExtrapFit
	m.Uncertainty = payload.Uncertainty
	m.TempCheck = payload.TempCheck

	if m.Transects, err = s.loadTransects(ctx, db, id); err != nil {
		return nil, err
	}
	if len(m.Transects) == 0 {
		return nil, fmt.Errorf("archive: measurement %d has no transects", id)
	}
	if m.Discharge, err = s.loadDischarges(ctx, db, id); err != nil {
		return nil, err
	}
	if m.MBTests, err = s.loadMBTests(ctx, db, id); err != nil {
		return nil, err
	}
	if err = s.loadPreMeasurements(ctx, db, id, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) loadTransects(ctx context.Context, db *sql.DB, id int64) (out []*transect.Transect, err error) {
	rows, err := db.QueryContext(ctx, selectTransectsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("querying transects: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var doc string
		if err = rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scanning transect: %w", err)
		}
		t := new(transect.Transect)
		if err = yaml.Unmarshal([]byte(doc), t); err != nil {
			return nil, fmt.Errorf("unmarshaling transect: %w", err)
		}
		rebuildTransect(t)
		out = append(out, t)
	}
	return out, rows.Err()
}

// rebuildTransect restores the derived per-transect state the archive
// does not carry: the cumulative time base and the processed series,
// recomputed from raw data under the stored filter state.
func rebuildTransect(t *transect.Transect) {
	cum := make([]float64, t.NumEnsembles())
	var acc float64
	for i, dt := range t.EnsDuration {
		if !math.IsNaN(dt) {
			acc += dt
		}
		cum[i] = acc
	}
	t.Boat.SetEnsTime(cum)
	t.Depths.SetEnsTime(cum)
	t.Depths.Process()
	t.Boat.Process()
	t.Water.Process(t)
}

func (s *Store) loadDischarges(ctx context.Context, db *sql.DB, id int64) (out []*discharge.Result, err error) {
	rows, err := db.QueryContext(ctx, selectDischargesSQL, id)
	if err != nil {
		return nil, fmt.Errorf("querying discharges: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		d := new(discharge.Result)
		var cells string
		if err = rows.Scan(&d.Top, &d.Middle, &d.Bottom, &d.Left, &d.Right,
			&d.IntCells, &d.IntEnsembles, &d.Total, &d.TotalUncorrected, &cells); err != nil {
			return nil, fmt.Errorf("scanning discharge: %w", err)
		}
		if err = yaml.Unmarshal([]byte(cells), &d.MiddleCells); err != nil {
			return nil, fmt.Errorf("unmarshaling discharge cells: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) loadMBTests(ctx context.Context, db *sql.DB, id int64) (out []*movingbed.Test, err error) {
	rows, err := db.QueryContext(ctx, selectMBTestsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("querying moving-bed tests: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var doc string
		if err = rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scanning moving-bed test: %w", err)
		}
		mbt := new(movingbed.Test)
		if err = yaml.Unmarshal([]byte(doc), mbt); err != nil {
			return nil, fmt.Errorf("unmarshaling moving-bed test: %w", err)
		}
		out = append(out, mbt)
	}
	return out, rows.Err()
}

func (s *Store) loadPreMeasurements(ctx context.Context, db *sql.DB, id int64, m *measurement.Measurement) (err error) {
	rows, err := db.QueryContext(ctx, selectPreMeasurementsSQL, id)
	if err != nil {
		return fmt.Errorf("querying premeasurement records: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var kind string
		var rec qa.PreMeasurement
		var recordedAt sql.NullTime
		if err = rows.Scan(&kind, &recordedAt, &rec.Data); err != nil {
			return fmt.Errorf("scanning premeasurement record: %w", err)
		}
		rec.TimeStamp = recordedAt.Time
		switch kind {
		case "compass_cal":
			m.CompassCals = append(m.CompassCals, rec)
		case "compass_eval":
			m.CompassEvals = append(m.CompassEvals, rec)
		default:
			m.SystemTests = append(m.SystemTests, rec)
		}
	}
	return rows.Err()
}

// Measurements lists the archived measurements, oldest first.
func (s *Store) Measurements(ctx context.Context) (out []Summary, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectMeasurementsSQL)
	if err != nil {
		return nil, fmt.Errorf("querying measurements: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sum Summary
		if err = rows.Scan(&sum.ID, &sum.CreatedAt, &sum.StationName,
			&sum.StationNumber, &sum.Processing); err != nil {
			return nil, fmt.Errorf("scanning measurement summary: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Close closes both database connections.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error
		if s.writeDB != nil {
			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}
		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}
		switch {
		case writeErr != nil && readErr != nil:
			s.closeErr = errors.Join(writeErr, readErr)
		case writeErr != nil:
			s.closeErr = writeErr
		case readErr != nil:
			s.closeErr = readErr
		}
	})
	return s.closeErr
}
