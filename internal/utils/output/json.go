package output

import (
	"encoding/json"
	"os"
)

// SaveJSON writes v as indented JSON to filepath
func SaveJSON(v interface{}, filepath string) error {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, content, 0644)
}
