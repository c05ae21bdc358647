package table

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/catastro-cli/internal/model"
)

// dBase field names are limited to 10 characters.
var shapeFields = []shp.Field{
	shp.StringField("REFCAT", 20),
	shp.StringField("SRS", 16),
	shp.StringField("ADDRESS", 254),
}

// WriteShapefile writes one point per location to path (.shp with its .shx
// and .dbf siblings).
func WriteShapefile(path string, locations []model.Location) error {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "table: create shapefile %s", path)
	}
	defer w.Close()

	if err := w.SetFields(shapeFields); err != nil {
		return eris.Wrap(err, "table: set shapefile fields")
	}

	for _, loc := range locations {
		n := int(w.Write(&shp.Point{X: loc.X, Y: loc.Y}))
		attrs := []string{loc.CadastralReference, loc.SRS, loc.Address}
		for i, v := range attrs {
			if err := w.WriteAttribute(n, i, v); err != nil {
				return eris.Wrapf(err, "table: write attribute %d of %s", i, loc.CadastralReference)
			}
		}
	}
	return nil
}
