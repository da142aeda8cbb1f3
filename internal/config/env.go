package config

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadEnvFile applies a dotenv file to the process environment, overriding existing values.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	path = filepath.Clean(path)
	if err := godotenv.Overload(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}
