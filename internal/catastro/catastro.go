// Package catastro flattens cadastre responses into provinces,
// municipalities, streets and property records.
package catastro

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/catastro-cli/internal/model"
	"github.com/sells-group/catastro-cli/pkg/ovc"
)

// ErrUnexpectedResponse is returned when a listing response lacks the
// container it is supposed to carry and reports no service error either.
var ErrUnexpectedResponse = eris.New("catastro: unexpected response shape")

// MaxStreetNumbers bounds the numbers a single street scan may look up.
const MaxStreetNumbers = 10000

// StreetFilter narrows a street listing. Empty fields do not filter.
type StreetFilter struct {
	Type string
	Name string
}

// Option configures a Catastro.
type Option func(*Catastro)

// WithConcurrency bounds the number of lookups in flight during street
// scans and municipality indexing.
func WithConcurrency(n int) Option {
	return func(c *Catastro) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// Catastro is the query facade over an OVC client.
type Catastro struct {
	client      ovc.Client
	concurrency int
}

// New returns a facade over client.
func New(client ovc.Client, opts ...Option) *Catastro {
	c := &Catastro{client: client, concurrency: 4}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provinces lists every province.
func (c *Catastro) Provinces(ctx context.Context) ([]model.Province, error) {
	tree, err := c.client.Provinces(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "catastro: list provinces")
	}

	path := []string{"consulta_provinciero", "provinciero", "prov"}
	if !tree.Has(path...) {
		return nil, shapeError(tree, "list provinces")
	}

	var out []model.Province
	for _, p := range tree.List(path...) {
		out = append(out, model.Province{
			Code: p.String("cpine"),
			Name: p.String("np"),
		})
	}
	return out, nil
}

// Municipalities lists the municipalities of a province, given by name or code.
func (c *Catastro) Municipalities(ctx context.Context, province string) ([]model.Municipality, error) {
	tree, err := c.client.Municipalities(ctx, province, "")
	if err != nil {
		return nil, eris.Wrapf(err, "catastro: list municipalities of %s", province)
	}

	path := []string{"consulta_municipiero", "municipiero", "muni"}
	if !tree.Has(path...) {
		return nil, shapeError(tree, "list municipalities of "+province)
	}

	var out []model.Municipality
	for _, m := range tree.List(path...) {
		out = append(out, model.Municipality{
			Name:                m.String("nm"),
			DelegationCode:      m.String("locat", "cd"),
			MunicipalityCode:    m.String("locat", "cmc"),
			ProvinceCodeINE:     m.String("loine", "cp"),
			MunicipalityCodeINE: m.String("loine", "cm"),
		})
	}
	return out, nil
}

// Streets lists the streets of a municipality.
func (c *Catastro) Streets(ctx context.Context, province, municipality string, filter StreetFilter) ([]model.Street, error) {
	tree, err := c.client.Streets(ctx, ovc.StreetQuery{
		Province:     province,
		Municipality: municipality,
		Type:         filter.Type,
		Name:         filter.Name,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "catastro: list streets of %s", municipality)
	}

	path := []string{"consulta_callejero", "callejero", "calle"}
	if !tree.Has(path...) {
		return nil, shapeError(tree, "list streets of "+municipality)
	}

	var out []model.Street
	for _, s := range tree.List(path...) {
		out = append(out, model.Street{
			ProvinceCode:     s.String("loine", "cp"),
			MunicipalityCode: s.String("loine", "cm"),
			StreetCode:       s.String("dir", "cv"),
			Type:             s.String("dir", "tv"),
			Name:             s.String("dir", "nv"),
		})
	}
	return out, nil
}

// Property looks up the property at addr. It returns nil, nil when the
// cadastre reports that the street number does not exist. Any other answer
// yields a record, empty where fields could not be extracted.
func (c *Catastro) Property(ctx context.Context, addr model.Address) (*model.Property, error) {
	tree, err := c.client.PropertyByLocation(ctx, ovc.LocationQuery{
		Province:     addr.Province,
		Municipality: addr.Town,
		StreetType:   addr.StreetType,
		StreetName:   addr.StreetName,
		Number:       addr.Number,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "catastro: property at %s %s %d", addr.StreetType, addr.StreetName, addr.Number)
	}

	if !propertyExists(tree) {
		return nil, nil
	}

	p, ok := extractProperty(tree, true)
	if !ok {
		zap.L().Debug("catastro: property response without unit data",
			zap.String("street", addr.StreetName),
			zap.Int("number", addr.Number),
		)
	}
	return &p, nil
}

// PropertiesOnStreet looks up numbers 0..maxNumber-1 on a street and returns
// the existing properties whose fields are all filled in, in number order.
// addr.Number is ignored. maxNumber may not exceed MaxStreetNumbers.
func (c *Catastro) PropertiesOnStreet(ctx context.Context, addr model.Address, maxNumber int) ([]model.Property, error) {
	if maxNumber > MaxStreetNumbers {
		return nil, eris.Errorf("catastro: scan %s %s: %d numbers exceeds the limit of %d",
			addr.StreetType, addr.StreetName, maxNumber, MaxStreetNumbers)
	}
	if maxNumber <= 0 {
		return []model.Property{}, nil
	}

	found := make([]*model.Property, maxNumber)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i := range maxNumber {
		g.Go(func() error {
			at := addr
			at.Number = i
			p, err := c.Property(gctx, at)
			if err != nil {
				return err
			}
			found[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrapf(err, "catastro: scan %s %s", addr.StreetType, addr.StreetName)
	}

	out := make([]model.Property, 0, maxNumber)
	for _, p := range found {
		if p != nil && p.Complete() {
			out = append(out, *p)
		}
	}

	zap.L().Info("street scan complete",
		zap.String("street", addr.StreetName),
		zap.Int("numbers", maxNumber),
		zap.Int("properties", len(out)),
	)
	return out, nil
}

// PropertiesAt looks up every address and returns the properties that exist,
// in input order.
func (c *Catastro) PropertiesAt(ctx context.Context, addrs []model.Address) ([]model.Property, error) {
	found := make([]*model.Property, len(addrs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, addr := range addrs {
		g.Go(func() error {
			p, err := c.Property(gctx, addr)
			if err != nil {
				return err
			}
			found[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "catastro: batch lookup")
	}

	out := make([]model.Property, 0, len(addrs))
	for _, p := range found {
		if p != nil {
			out = append(out, *p)
		}
	}

	zap.L().Info("batch lookup complete",
		zap.Int("addresses", len(addrs)),
		zap.Int("properties", len(out)),
	)
	return out, nil
}

// PropertiesNear lists the parcels around a coordinate. srs defaults to
// EPSG:4326. Missing pieces of the response degrade to empty values.
func (c *Catastro) PropertiesNear(ctx context.Context, longitude, latitude float64, srs string) ([]model.NearbyProperty, error) {
	if srs == "" {
		srs = ovc.DefaultSRS
	}

	tree, err := c.client.ReferencesNear(ctx, srs, longitude, latitude)
	if err != nil {
		return nil, eris.Wrap(err, "catastro: properties near coordinate")
	}

	out := []model.NearbyProperty{}
	for _, pcd := range tree.List("consulta_coordenadas_distancias", "coordenadas_distancias", "coordd", "lpcd", "pcd") {
		out = append(out, model.NearbyProperty{
			CadastralReference: pcd.String("pc", "pc1") + pcd.String("pc", "pc2"),
			Province:           pcd.String("dt", "loine", "cp"),
			Municipality:       pcd.String("dt", "loine", "cm"),
			Address:            pcd.String("ldt"),
			Distance:           pcd.String("dis"),
		})
	}
	return out, nil
}

// PropertyByReference looks up a cadastral reference. The result holds one
// record, or none when the response carries no reference.
func (c *Catastro) PropertyByReference(ctx context.Context, province, municipality, reference string) ([]model.Property, error) {
	tree, err := c.client.PropertyByReference(ctx, province, municipality, reference)
	if err != nil {
		return nil, eris.Wrapf(err, "catastro: property %s", reference)
	}

	p, ok := extractProperty(tree, false)
	if !ok {
		return []model.Property{}, nil
	}
	return []model.Property{p}, nil
}

// ProvinceCodeIndex maps province codes to names.
func (c *Catastro) ProvinceCodeIndex(ctx context.Context) (map[string]string, error) {
	provinces, err := c.Provinces(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[string]string, len(provinces))
	for _, p := range provinces {
		index[p.Code] = p.Name
	}
	return index, nil
}

// MunicipalityCodeIndex maps tax-authority municipality codes to names
// across every province. On a code shared by several provinces the one
// enumerated last wins.
func (c *Catastro) MunicipalityCodeIndex(ctx context.Context) (map[string]string, error) {
	provinces, err := c.Provinces(ctx)
	if err != nil {
		return nil, err
	}

	perProvince := make([][]model.Municipality, len(provinces))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, p := range provinces {
		g.Go(func() error {
			munis, err := c.Municipalities(gctx, p.Name)
			if err != nil {
				return err
			}
			perProvince[i] = munis
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "catastro: municipality index")
	}

	index := make(map[string]string)
	for _, munis := range perProvince {
		for _, m := range munis {
			index[m.MunicipalityCode] = m.Name
		}
	}
	return index, nil
}

// Locate resolves a cadastral reference to the point the cadastre reports.
func (c *Catastro) Locate(ctx context.Context, province, municipality, reference, srs string) (*model.Location, error) {
	if srs == "" {
		srs = ovc.DefaultSRS
	}

	tree, err := c.client.ReferenceCoordinates(ctx, province, municipality, srs, reference)
	if err != nil {
		return nil, eris.Wrapf(err, "catastro: locate %s", reference)
	}

	coords := tree.List("consulta_coordenadas", "coordenadas", "coord")
	if len(coords) == 0 {
		return nil, shapeError(tree, "locate "+reference)
	}
	coord := coords[0]

	x, err := strconv.ParseFloat(coord.String("geo", "xcen"), 64)
	if err != nil {
		return nil, eris.Wrapf(err, "catastro: locate %s: parse x", reference)
	}
	y, err := strconv.ParseFloat(coord.String("geo", "ycen"), 64)
	if err != nil {
		return nil, eris.Wrapf(err, "catastro: locate %s: parse y", reference)
	}

	loc := &model.Location{
		CadastralReference: coord.String("pc", "pc1") + coord.String("pc", "pc2"),
		SRS:                coord.String("geo", "srs"),
		X:                  x,
		Y:                  y,
		Address:            coord.String("ldt"),
	}
	if loc.SRS == "" {
		loc.SRS = srs
	}
	return loc, nil
}

// shapeError prefers the service's own error over the generic shape error.
func shapeError(tree ovc.Tree, action string) error {
	if svcErr := ovc.ResponseError(tree); svcErr != nil {
		return eris.Wrapf(svcErr, "catastro: %s", action)
	}
	return eris.Wrapf(ErrUnexpectedResponse, "catastro: %s", action)
}
