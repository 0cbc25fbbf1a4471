package coordinates

import (
	"encoding/json"
	"fmt"
)

// Encode serializes coordinates for storage.
func Encode(c Coordinates) ([]byte, error) {
	return json.Marshal(c)
}

// Decode restores coordinates of the given format from their stored form.
func Decode(format Format, data []byte) (Coordinates, error) {
	var c Coordinates
	switch format {
	case FormatMaven:
		c = &MavenCoordinates{}
	case FormatPypi:
		c = &PypiCoordinates{}
	default:
		return nil, fmt.Errorf("cannot decode coordinates of format '%s'", format)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to decode %s coordinates: %w", format, err)
	}
	return c, nil
}
