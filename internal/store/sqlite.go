package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/lox/cityweather/internal/models"
)

var (
	// ErrNotFound is returned when an operation references a city that
	// does not exist.
	ErrNotFound = errors.New("city not found")

	// ErrDuplicateName is returned when creating a city whose name is
	// already taken. Callers are expected to re-fetch the existing city.
	ErrDuplicateName = errors.New("city name already exists")
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateCity(name, country string, lat, lon float64) (*models.City, error) {
	addedAt := time.Now().UTC()
	res, err := s.db.Exec(`
		INSERT INTO cities (name, country, latitude, longitude, added_at)
		VALUES (?, ?, ?, ?, ?)
	`, name, country, lat, lon, addedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("insert city: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("city id: %w", err)
	}
	return &models.City{
		ID:        id,
		Name:      name,
		Country:   country,
		Latitude:  lat,
		Longitude: lon,
		AddedAt:   addedAt,
	}, nil
}

func (s *Store) ListCities() ([]models.City, error) {
	rows, err := s.db.Query(`SELECT id, name, country, latitude, longitude, added_at FROM cities`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cities []models.City
	for rows.Next() {
		var c models.City
		if err := rows.Scan(&c.ID, &c.Name, &c.Country, &c.Latitude, &c.Longitude, &c.AddedAt); err != nil {
			return nil, err
		}
		cities = append(cities, c)
	}
	return cities, rows.Err()
}

func (s *Store) GetCity(id int64) (*models.City, error) {
	row := s.db.QueryRow(`SELECT id, name, country, latitude, longitude, added_at FROM cities WHERE id = ?`, id)
	return scanCity(row)
}

func (s *Store) FindCityByName(name string) (*models.City, error) {
	row := s.db.QueryRow(`SELECT id, name, country, latitude, longitude, added_at FROM cities WHERE name = ?`, name)
	return scanCity(row)
}

func scanCity(row *sql.Row) (*models.City, error) {
	var c models.City
	err := row.Scan(&c.ID, &c.Name, &c.Country, &c.Latitude, &c.Longitude, &c.AddedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) RecordObservation(cityID int64, cond models.Conditions) (*models.Observation, error) {
	var exists bool
	if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM cities WHERE id = ?)`, cityID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	observedAt := time.Now().UTC()
	res, err := s.db.Exec(`
		INSERT INTO observations (city_id, temp_c, description, humidity, wind_kph, observed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, cityID, cond.TempC, cond.Description, cond.Humidity, cond.WindKph, observedAt)
	if err != nil {
		return nil, fmt.Errorf("insert observation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("observation id: %w", err)
	}
	return &models.Observation{
		ID:          id,
		CityID:      cityID,
		TempC:       cond.TempC,
		Description: cond.Description,
		Humidity:    cond.Humidity,
		WindKph:     cond.WindKph,
		ObservedAt:  observedAt,
	}, nil
}

// LatestObservation returns the most recent observation for a city, or nil
// if none exists. Equal timestamps tie-break on the highest id so the result
// is deterministic.
func (s *Store) LatestObservation(cityID int64) (*models.Observation, error) {
	row := s.db.QueryRow(`
		SELECT id, city_id, temp_c, description, humidity, wind_kph, observed_at
		FROM observations
		WHERE city_id = ?
		ORDER BY observed_at DESC, id DESC
		LIMIT 1
	`, cityID)

	var o models.Observation
	err := row.Scan(&o.ID, &o.CityID, &o.TempC, &o.Description, &o.Humidity, &o.WindKph, &o.ObservedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// DeleteCity removes a city and all of its observations in one transaction.
// Returns false if the city does not exist.
func (s *Store) DeleteCity(id int64) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM observations WHERE city_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete observations: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM cities WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete city: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// CitiesWithWeather joins every city with its latest observation in a single
// query. Weather columns come back NULL for cities with no observations.
func (s *Store) CitiesWithWeather() ([]models.CityWithWeather, error) {
	rows, err := s.db.Query(`
		SELECT c.id, c.name, c.country, o.temp_c, o.description, o.humidity, o.wind_kph, o.observed_at
		FROM cities c
		LEFT JOIN observations o ON o.id = (
			SELECT id FROM observations
			WHERE city_id = c.id
			ORDER BY observed_at DESC, id DESC
			LIMIT 1
		)
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []models.CityWithWeather
	for rows.Next() {
		var v models.CityWithWeather
		var temp, wind sql.NullFloat64
		var desc sql.NullString
		var humidity sql.NullInt64
		var observedAt sql.NullTime
		if err := rows.Scan(&v.ID, &v.Name, &v.Country, &temp, &desc, &humidity, &wind, &observedAt); err != nil {
			return nil, err
		}
		if temp.Valid {
			v.TempC = &temp.Float64
		}
		if desc.Valid {
			v.Description = &desc.String
		}
		if humidity.Valid {
			h := int(humidity.Int64)
			v.Humidity = &h
		}
		if wind.Valid {
			v.WindKph = &wind.Float64
		}
		if observedAt.Valid {
			t := observedAt.Time
			v.LastUpdated = &t
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
