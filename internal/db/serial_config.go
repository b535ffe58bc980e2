package db

import (
	"database/sql"
	"fmt"
)

// SerialConfig represents a persisted serial port configuration for an
// insole sensor.
type SerialConfig struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	PortPath    string `json:"port_path"`
	BaudRate    int    `json:"baud_rate"`
	DataBits    int    `json:"data_bits"`
	StopBits    int    `json:"stop_bits"`
	Parity      string `json:"parity"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

const serialConfigColumns = `id, name, port_path, baud_rate, data_bits, stop_bits, parity, enabled, description, created_at, updated_at`

func scanSerialConfig(scan func(...any) error) (SerialConfig, error) {
	var c SerialConfig
	var enabled int
	err := scan(&c.ID, &c.Name, &c.PortPath, &c.BaudRate, &c.DataBits,
		&c.StopBits, &c.Parity, &enabled, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	c.Enabled = enabled == 1
	return c, err
}

// SerialConfigs returns all serial configurations, oldest first.
func (db *DB) SerialConfigs() ([]SerialConfig, error) {
	rows, err := db.Query(
		`SELECT ` + serialConfigColumns + ` FROM insole_serial_config ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query serial configs: %w", err)
	}
	defer rows.Close()

	var configs []SerialConfig
	for rows.Next() {
		c, err := scanSerialConfig(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan serial config: %w", err)
		}
		configs = append(configs, c)
	}

	return configs, rows.Err()
}

// SerialConfig returns a single configuration by ID, or nil when absent.
func (db *DB) SerialConfig(id int) (*SerialConfig, error) {
	row := db.QueryRow(
		`SELECT `+serialConfigColumns+` FROM insole_serial_config WHERE id = ?`, id)

	c, err := scanSerialConfig(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get serial config: %w", err)
	}
	return &c, nil
}

// EnabledSerialConfig returns the first enabled configuration, or nil
// when none is enabled. One insole is driven at a time.
func (db *DB) EnabledSerialConfig() (*SerialConfig, error) {
	row := db.QueryRow(
		`SELECT ` + serialConfigColumns + ` FROM insole_serial_config WHERE enabled = 1 ORDER BY created_at ASC, id ASC LIMIT 1`)

	c, err := scanSerialConfig(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enabled serial config: %w", err)
	}
	return &c, nil
}

// CreateSerialConfig inserts a new configuration and returns its ID.
func (db *DB) CreateSerialConfig(c *SerialConfig) (int64, error) {
	enabled := 0
	if c.Enabled {
		enabled = 1
	}

	result, err := db.Exec(
		`INSERT INTO insole_serial_config (name, port_path, baud_rate, data_bits, stop_bits, parity, enabled, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.PortPath, c.BaudRate, c.DataBits, c.StopBits, c.Parity, enabled, c.Description)
	if err != nil {
		return 0, fmt.Errorf("failed to create serial config: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

// UpdateSerialConfig updates an existing configuration.
func (db *DB) UpdateSerialConfig(c *SerialConfig) error {
	enabled := 0
	if c.Enabled {
		enabled = 1
	}

	result, err := db.Exec(
		`UPDATE insole_serial_config
		 SET name = ?, port_path = ?, baud_rate = ?, data_bits = ?, stop_bits = ?,
		     parity = ?, enabled = ?, description = ?, updated_at = unixepoch()
		 WHERE id = ?`,
		c.Name, c.PortPath, c.BaudRate, c.DataBits, c.StopBits,
		c.Parity, enabled, c.Description, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update serial config: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("serial config with ID %d not found", c.ID)
	}
	return nil
}

// DeleteSerialConfig removes a configuration.
func (db *DB) DeleteSerialConfig(id int) error {
	result, err := db.Exec(`DELETE FROM insole_serial_config WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete serial config: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("serial config with ID %d not found", id)
	}
	return nil
}
