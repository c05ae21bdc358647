package model

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// Location is the point the cadastre reports for a cadastral reference.
type Location struct {
	CadastralReference string  `json:"cadastral_reference" yaml:"cadastral_reference"`
	SRS                string  `json:"srs" yaml:"srs"`
	X                  float64 `json:"x" yaml:"x"`
	Y                  float64 `json:"y" yaml:"y"`
	Address            string  `json:"address" yaml:"address"`
}

// Point returns the location as a go-geom point carrying the SRID of its SRS.
func (l Location) Point() *geom.Point {
	p := geom.NewPointFlat(geom.XY, []float64{l.X, l.Y})
	if srid, err := ParseSRID(l.SRS); err == nil {
		p.SetSRID(srid)
	}
	return p
}

// WKT renders the point as well-known text.
func (l Location) WKT() string {
	s, err := wkt.Marshal(l.Point())
	if err != nil {
		return ""
	}
	return s
}

func (Location) Columns() []string {
	return []string{"CadastralReference", "SRS", "X", "Y", "Address", "WKT"}
}

func (l Location) Values() []string {
	return []string{
		l.CadastralReference,
		l.SRS,
		strconv.FormatFloat(l.X, 'f', -1, 64),
		strconv.FormatFloat(l.Y, 'f', -1, 64),
		l.Address,
		l.WKT(),
	}
}

// ParseSRID extracts the numeric code from an "EPSG:nnnn" reference.
func ParseSRID(srs string) (int, error) {
	code, ok := strings.CutPrefix(strings.ToUpper(strings.TrimSpace(srs)), "EPSG:")
	if !ok {
		return 0, eris.Errorf("model: unsupported SRS %q", srs)
	}
	srid, err := strconv.Atoi(code)
	if err != nil {
		return 0, eris.Wrapf(err, "model: parse SRS %q", srs)
	}
	return srid, nil
}
