package catastro

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/catastro-cli/internal/model"
	"github.com/sells-group/catastro-cli/pkg/ovc"
)

const provincesXML = `<consulta_provinciero xmlns="http://www.catastro.meh.es/">
  <control><cuprov>3</cuprov></control>
  <provinciero>
    <prov><cpine>15</cpine><np>A CORUÑA</np></prov>
    <prov><cpine>28</cpine><np>MADRID</np></prov>
    <prov><cpine>51</cpine><np>CEUTA</np></prov>
  </provinciero>
</consulta_provinciero>`

const madridMunicipalitiesXML = `<consulta_municipiero>
  <control><cumun>2</cumun></control>
  <municipiero>
    <muni><nm>ALCALA DE HENARES</nm><locat><cd>28</cd><cmc>5</cmc></locat><loine><cp>28</cp><cm>5</cm></loine></muni>
    <muni><nm>MADRID</nm><locat><cd>28</cd><cmc>900</cmc></locat><loine><cp>28</cp><cm>79</cm></loine></muni>
  </municipiero>
</consulta_municipiero>`

const ceutaMunicipalitiesXML = `<consulta_municipiero>
  <control><cumun>1</cumun></control>
  <municipiero>
    <muni><nm>CEUTA</nm><locat><cd>51</cd><cmc>101</cmc></locat><loine><cp>51</cp><cm>1</cm></loine></muni>
  </municipiero>
</consulta_municipiero>`

const corunaMunicipalitiesXML = `<consulta_municipiero>
  <municipiero>
    <muni><nm>A CORUÑA</nm><locat><cd>15</cd><cmc>900</cmc></locat><loine><cp>15</cp><cm>30</cm></loine></muni>
  </municipiero>
</consulta_municipiero>`

func TestProvinces(t *testing.T) {
	c := New(&fakeClient{provinces: provincesXML})

	provinces, err := c.Provinces(context.Background())
	require.NoError(t, err)
	require.Len(t, provinces, 3)
	assert.Equal(t, model.Province{Code: "15", Name: "A CORUÑA"}, provinces[0])
	assert.Equal(t, model.Province{Code: "51", Name: "CEUTA"}, provinces[2])
	assert.Equal(t, []string{"Code", "Name"}, provinces[0].Columns())
}

func TestProvinces_UnexpectedShape(t *testing.T) {
	c := New(&fakeClient{provinces: `<consulta_provinciero><control><cuprov>0</cuprov></control></consulta_provinciero>`})

	_, err := c.Provinces(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedResponse)
}

func TestProvinces_ServiceErrorSurfaced(t *testing.T) {
	c := New(&fakeClient{provinces: `<consulta_provinciero><lerr><err><cod>12</cod><des>LA PROVINCIA NO EXISTE</des></err></lerr></consulta_provinciero>`})

	_, err := c.Provinces(context.Background())
	require.Error(t, err)

	var svcErr *ovc.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "12", svcErr.Code)
	assert.Equal(t, "LA PROVINCIA NO EXISTE", svcErr.Description)
}

func TestProvinces_ClientError(t *testing.T) {
	c := New(&fakeClient{err: errors.New("connection refused")})

	_, err := c.Provinces(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestMunicipalities_SingleAndMany(t *testing.T) {
	c := New(&fakeClient{municipalities: map[string]string{
		"MADRID": madridMunicipalitiesXML,
		"CEUTA":  ceutaMunicipalitiesXML,
	}})

	single, err := c.Municipalities(context.Background(), "CEUTA")
	require.NoError(t, err)
	require.Len(t, single, 1)
	assert.Equal(t, model.Municipality{
		Name:                "CEUTA",
		DelegationCode:      "51",
		MunicipalityCode:    "101",
		ProvinceCodeINE:     "51",
		MunicipalityCodeINE: "1",
	}, single[0])

	many, err := c.Municipalities(context.Background(), "MADRID")
	require.NoError(t, err)
	require.Len(t, many, 2)
	assert.Equal(t, "MADRID", many[1].Name)
	assert.Equal(t, "900", many[1].MunicipalityCode)
	assert.Equal(t, "79", many[1].MunicipalityCodeINE)
}

func TestStreets_FiltersPassedThrough(t *testing.T) {
	fake := &fakeClient{streets: `<consulta_callejero>
  <callejero>
    <calle><loine><cp>28</cp><cm>79</cm></loine><dir><cv>5112</cv><tv>CL</tv><nv>MAYOR</nv></dir></calle>
  </callejero>
</consulta_callejero>`}
	c := New(fake)

	streets, err := c.Streets(context.Background(), "MADRID", "MADRID", StreetFilter{Type: "CL", Name: "MAYOR"})
	require.NoError(t, err)

	assert.Equal(t, ovc.StreetQuery{Province: "MADRID", Municipality: "MADRID", Type: "CL", Name: "MAYOR"}, fake.streetQuery)
	require.Len(t, streets, 1)
	assert.Equal(t, model.Street{ProvinceCode: "28", MunicipalityCode: "79", StreetCode: "5112", Type: "CL", Name: "MAYOR"}, streets[0])
}

func TestStreets_Many(t *testing.T) {
	c := New(&fakeClient{streets: `<consulta_callejero><callejero>
    <calle><loine><cp>28</cp><cm>79</cm></loine><dir><cv>1</cv><tv>CL</tv><nv>ALCALA</nv></dir></calle>
    <calle><loine><cp>28</cp><cm>79</cm></loine><dir><cv>2</cv><tv>PZ</tv><nv>MAYOR</nv></dir></calle>
  </callejero></consulta_callejero>`})

	streets, err := c.Streets(context.Background(), "MADRID", "MADRID", StreetFilter{})
	require.NoError(t, err)
	require.Len(t, streets, 2)
	assert.Equal(t, "PZ", streets[1].Type)
}

func TestProperty_NotFound(t *testing.T) {
	c := New(&fakeClient{})

	p, err := c.Property(context.Background(), model.Address{Province: "MADRID", Town: "MADRID", StreetType: "CL", StreetName: "MAYOR", Number: 999})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestProperty_Found(t *testing.T) {
	c := New(&fakeClient{byNumber: map[int]string{
		1: propertyXML("1", "1950", consXML("VIVIENDA", "80")+consXML("ALMACEN", "12")),
	}})

	p, err := c.Property(context.Background(), model.Address{Province: "MADRID", Town: "MADRID", StreetType: "CL", StreetName: "MAYOR", Number: 1})
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, model.Property{
		CadastralReference: "987201VH5797S0001WX",
		Province:           "MADRID",
		Municipality:       "MADRID",
		Address:            "CL MAYOR 1",
		Use:                "Residencial",
		SurfaceArea:        "95",
		OwnershipShare:     "100,000000",
		Age:                "1950",
		Constructions:      []string{"VIVIENDA - 80 m^2", "ALMACEN - 12 m^2"},
	}, *p)
}

func TestProperty_OtherServiceErrorStillYieldsRecord(t *testing.T) {
	c := New(&fakeClient{byNumber: map[int]string{
		4: `<consulta_dnp><lerr><err><cod>33</cod><des>LA CALLE NO EXISTE</des></err></lerr></consulta_dnp>`,
	}})

	p, err := c.Property(context.Background(), model.Address{StreetName: "NINGUNA", Number: 4})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.False(t, p.Complete())
}

func TestPropertiesOnStreet_KeepsExistingCompleteRecords(t *testing.T) {
	fake := &fakeClient{byNumber: map[int]string{
		1: propertyXML("1", "1950", consXML("VIVIENDA", "80")),
		3: propertyXML("3", "1972", ""),
	}}
	c := New(fake, WithConcurrency(2))

	props, err := c.PropertiesOnStreet(context.Background(), model.Address{Province: "MADRID", Town: "MADRID", StreetType: "CL", StreetName: "MAYOR"}, 5)
	require.NoError(t, err)

	require.Len(t, props, 2)
	assert.Equal(t, "CL MAYOR 1", props[0].Address)
	assert.Equal(t, "CL MAYOR 3", props[1].Address)
	assert.Equal(t, 5, fake.locationCalls)
	for _, p := range props {
		assert.True(t, p.Complete())
	}
}

func TestPropertiesOnStreet_DropsIncompleteRecords(t *testing.T) {
	c := New(&fakeClient{byNumber: map[int]string{
		0: propertyXML("0", "", ""),
		2: propertyXML("2", "2001", ""),
		3: `<consulta_dnp><control><cudnp>3</cudnp></control><lrcdnp><rcdnp/></lrcdnp></consulta_dnp>`,
	}})

	props, err := c.PropertiesOnStreet(context.Background(), model.Address{StreetType: "CL", StreetName: "MAYOR"}, 4)
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, "2001", props[0].Age)
}

func TestPropertiesOnStreet_ZeroNumbers(t *testing.T) {
	fake := &fakeClient{}
	props, err := New(fake).PropertiesOnStreet(context.Background(), model.Address{}, 0)
	require.NoError(t, err)
	assert.Empty(t, props)
	assert.Equal(t, 0, fake.locationCalls)
}

func TestPropertiesOnStreet_TooManyNumbers(t *testing.T) {
	fake := &fakeClient{}
	_, err := New(fake).PropertiesOnStreet(context.Background(), model.Address{StreetName: "MAYOR"}, MaxStreetNumbers+1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds the limit")
	assert.Equal(t, 0, fake.locationCalls)
}

func TestPropertiesOnStreet_PropagatesErrors(t *testing.T) {
	c := New(&fakeClient{err: errors.New("service unavailable")})

	_, err := c.PropertiesOnStreet(context.Background(), model.Address{StreetName: "MAYOR"}, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service unavailable")
}

func TestPropertiesAt_KeepsInputOrderAndSkipsMissing(t *testing.T) {
	fake := &fakeClient{byNumber: map[int]string{
		1: propertyXML("1", "1950", ""),
		7: propertyXML("7", "1988", ""),
	}}
	c := New(fake, WithConcurrency(3))

	addrs := []model.Address{
		{StreetType: "CL", StreetName: "MAYOR", Number: 7},
		{StreetType: "CL", StreetName: "MAYOR", Number: 2},
		{StreetType: "CL", StreetName: "MAYOR", Number: 1},
	}
	props, err := c.PropertiesAt(context.Background(), addrs)
	require.NoError(t, err)

	require.Len(t, props, 2)
	assert.Equal(t, "1988", props[0].Age)
	assert.Equal(t, "1950", props[1].Age)
	assert.Equal(t, 3, fake.locationCalls)
}

func TestPropertiesAt_Empty(t *testing.T) {
	props, err := New(&fakeClient{}).PropertiesAt(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, props)
	assert.Empty(t, props)
}

func TestPropertiesAt_PropagatesErrors(t *testing.T) {
	c := New(&fakeClient{err: errors.New("service unavailable")})

	_, err := c.PropertiesAt(context.Background(), []model.Address{{StreetName: "MAYOR", Number: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch lookup")
	assert.Contains(t, err.Error(), "service unavailable")
}

func TestPropertiesNear(t *testing.T) {
	fake := &fakeClient{near: `<consulta_coordenadas_distancias>
  <control><cucoor>2</cucoor></control>
  <coordenadas_distancias><coordd><lpcd>
    <pcd>
      <pc><pc1>9872023</pc1><pc2>VH5797S</pc2></pc>
      <dt><loine><cp>28</cp><cm>79</cm></loine></dt>
      <ldt>CL MAYOR 1 MADRID (MADRID)</ldt>
      <dis>12.5</dis>
    </pcd>
    <pcd><pc><pc1>9872024</pc1></pc></pcd>
  </lpcd></coordd></coordenadas_distancias>
</consulta_coordenadas_distancias>`}
	c := New(fake)

	near, err := c.PropertiesNear(context.Background(), -3.7038, 40.4168, "")
	require.NoError(t, err)

	assert.Equal(t, "EPSG:4326", fake.nearSRS)
	assert.InDelta(t, -3.7038, fake.nearX, 1e-9)
	assert.InDelta(t, 40.4168, fake.nearY, 1e-9)

	require.Len(t, near, 2)
	assert.Equal(t, model.NearbyProperty{
		CadastralReference: "9872023VH5797S",
		Province:           "28",
		Municipality:       "79",
		Address:            "CL MAYOR 1 MADRID (MADRID)",
		Distance:           "12.5",
	}, near[0])
	assert.Equal(t, model.NearbyProperty{CadastralReference: "9872024"}, near[1])
}

func TestPropertiesNear_TolerantOfMissingKeys(t *testing.T) {
	docs := []string{
		`<consulta_coordenadas_distancias/>`,
		`<consulta_coordenadas_distancias><coordenadas_distancias/></consulta_coordenadas_distancias>`,
		`<consulta_coordenadas_distancias><coordenadas_distancias><coordd><lpcd/></coordd></coordenadas_distancias></consulta_coordenadas_distancias>`,
		`<other/>`,
	}
	for _, doc := range docs {
		near, err := New(&fakeClient{near: doc}).PropertiesNear(context.Background(), 1, 2, "EPSG:25830")
		require.NoError(t, err)
		assert.NotNil(t, near)
		assert.Empty(t, near)
	}
}

func TestPropertyByReference(t *testing.T) {
	c := New(&fakeClient{byReference: propertyXML("7", "1980", consXML("RESIDENCIAL", "80"))})

	props, err := c.PropertyByReference(context.Background(), "MADRID", "MADRID", "987207VH5797S0001WX")
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, "987207VH5797S0001WX", props[0].CadastralReference)
	assert.Equal(t, []string{"RESIDENCIAL - 80 m^2"}, props[0].Constructions)
}

func TestPropertyByReference_MissingReference(t *testing.T) {
	c := New(&fakeClient{byReference: `<consulta_dnp><bico><bi><dt><np>MADRID</np></dt></bi></bico></consulta_dnp>`})

	props, err := c.PropertyByReference(context.Background(), "MADRID", "MADRID", "X")
	require.NoError(t, err)
	assert.NotNil(t, props)
	assert.Empty(t, props)
}

func TestProvinceCodeIndex(t *testing.T) {
	index, err := New(&fakeClient{provinces: provincesXML}).ProvinceCodeIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"15": "A CORUÑA", "28": "MADRID", "51": "CEUTA"}, index)
}

func TestMunicipalityCodeIndex(t *testing.T) {
	c := New(&fakeClient{
		provinces: provincesXML,
		municipalities: map[string]string{
			"A CORUÑA": corunaMunicipalitiesXML,
			"MADRID":   madridMunicipalitiesXML,
			"CEUTA":    ceutaMunicipalitiesXML,
		},
	}, WithConcurrency(3))

	index, err := c.MunicipalityCodeIndex(context.Background())
	require.NoError(t, err)

	// Code 900 exists in A CORUÑA and MADRID; the later province wins.
	assert.Equal(t, map[string]string{
		"5":   "ALCALA DE HENARES",
		"900": "MADRID",
		"101": "CEUTA",
	}, index)
}

func TestMunicipalityCodeIndex_ProvinceFailure(t *testing.T) {
	c := New(&fakeClient{
		provinces:      provincesXML,
		municipalities: map[string]string{"MADRID": madridMunicipalitiesXML},
	})

	_, err := c.MunicipalityCodeIndex(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedResponse)
}

func TestLocate(t *testing.T) {
	c := New(&fakeClient{coordinates: `<consulta_coordenadas>
  <control><cucoor>1</cucoor><cuerr>0</cuerr></control>
  <coordenadas><coord>
    <pc><pc1>9872023</pc1><pc2>VH5797S</pc2></pc>
    <geo><xcen>-3.70861</xcen><ycen>40.41557</ycen><srs>EPSG:4326</srs></geo>
    <ldt>CL MAYOR 1 MADRID (MADRID)</ldt>
  </coord></coordenadas>
</consulta_coordenadas>`})

	loc, err := c.Locate(context.Background(), "MADRID", "MADRID", "9872023VH5797S", "")
	require.NoError(t, err)
	assert.Equal(t, "9872023VH5797S", loc.CadastralReference)
	assert.Equal(t, "EPSG:4326", loc.SRS)
	assert.InDelta(t, -3.70861, loc.X, 1e-9)
	assert.InDelta(t, 40.41557, loc.Y, 1e-9)
	assert.Equal(t, "POINT (-3.70861 40.41557)", loc.WKT())
}

func TestLocate_ServiceError(t *testing.T) {
	c := New(&fakeClient{coordinates: `<consulta_coordenadas><lerr><err><cod>11</cod><des>LA REFERENCIA CATASTRAL NO EXISTE</des></err></lerr></consulta_coordenadas>`})

	_, err := c.Locate(context.Background(), "MADRID", "MADRID", "BAD", "")
	var svcErr *ovc.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "11", svcErr.Code)
}
