package archive

import (
	_ "embed"
)

//go:embed schema.sql
var schemaSQL string

const (
	insertMeasurementSQL = `
INSERT INTO measurements (station_name,
                          station_number,
                          processing,
                          user_rating,
                          payload)
VALUES (?, ?, ?, ?, ?)`

	insertTransectSQL = `
INSERT INTO transects (measurement_id,
                       position,
                       file_name,
                       checked,
                       payload)
VALUES (?, ?, ?, ?, ?)`

	insertDischargeSQL = `
INSERT INTO discharges (measurement_id,
                        position,
                        top,
                        middle,
                        bottom,
                        left_q,
                        right_q,
                        int_cells,
                        int_ensembles,
                        total,
                        total_uncorrected,
                        middle_cells)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertMBTestSQL = `
INSERT INTO moving_bed_tests (measurement_id, position, payload)
VALUES (?, ?, ?)`

	insertPreMeasurementSQL = `
INSERT INTO premeasurements (measurement_id, kind, position, recorded_at, data)
VALUES (?, ?, ?, ?, ?)`

	selectMeasurementSQL = `
SELECT
    station_name,
    station_number,
    processing,
    user_rating,
    payload
FROM measurements
WHERE
    id = ?`

	selectMeasurementsSQL = `
SELECT
    id,
    created_at,
    station_name,
    station_number,
    processing
FROM measurements
ORDER BY id`

	selectTransectsSQL = `
SELECT payload
FROM transects
WHERE
    measurement_id = ?
ORDER BY position`

	selectDischargesSQL = `
SELECT
    top,
    middle,
    bottom,
    left_q,
    right_q,
    int_cells,
    int_ensembles,
    total,
    total_uncorrected,
    middle_cells
FROM discharges
WHERE
    measurement_id = ?
ORDER BY position`

	selectMBTestsSQL = `
SELECT payload
FROM moving_bed_tests
WHERE
    measurement_id = ?
ORDER BY position`

	selectPreMeasurementsSQL = `
SELECT
    kind,
    recorded_at,
    data
FROM premeasurements
WHERE
    measurement_id = ?
ORDER BY kind, position`
)
