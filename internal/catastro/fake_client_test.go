package catastro

import (
	"context"
	"strings"
	"sync"

	"github.com/sells-group/catastro-cli/pkg/ovc"
)

const notFoundXML = `<consulta_dnp><control><cuerr>1</cuerr></control>
<lerr><err><cod>43</cod><des>EL NUMERO NO EXISTE</des></err></lerr></consulta_dnp>`

// fakeClient answers OVC queries from canned XML documents.
type fakeClient struct {
	mu sync.Mutex

	provinces      string
	municipalities map[string]string
	streets        string
	byNumber       map[int]string
	byReference    string
	near           string
	coordinates    string
	err            error

	streetQuery   ovc.StreetQuery
	nearSRS       string
	nearX, nearY  float64
	locationCalls int
}

var _ ovc.Client = (*fakeClient)(nil)

func mustTree(doc string) ovc.Tree {
	tree, err := ovc.DecodeTree(strings.NewReader(doc))
	if err != nil {
		panic(err)
	}
	return tree
}

func (f *fakeClient) answer(doc string) (ovc.Tree, error) {
	if f.err != nil {
		return nil, f.err
	}
	if doc == "" {
		doc = "<empty/>"
	}
	return mustTree(doc), nil
}

func (f *fakeClient) Provinces(_ context.Context) (ovc.Tree, error) {
	return f.answer(f.provinces)
}

func (f *fakeClient) Municipalities(_ context.Context, province, _ string) (ovc.Tree, error) {
	f.mu.Lock()
	doc := f.municipalities[province]
	f.mu.Unlock()
	return f.answer(doc)
}

func (f *fakeClient) Streets(_ context.Context, q ovc.StreetQuery) (ovc.Tree, error) {
	f.streetQuery = q
	return f.answer(f.streets)
}

func (f *fakeClient) PropertyByLocation(_ context.Context, q ovc.LocationQuery) (ovc.Tree, error) {
	f.mu.Lock()
	f.locationCalls++
	doc, ok := f.byNumber[q.Number]
	f.mu.Unlock()
	if !ok {
		doc = notFoundXML
	}
	return f.answer(doc)
}

func (f *fakeClient) PropertyByReference(_ context.Context, _, _, _ string) (ovc.Tree, error) {
	return f.answer(f.byReference)
}

func (f *fakeClient) ReferencesNear(_ context.Context, srs string, x, y float64) (ovc.Tree, error) {
	f.nearSRS, f.nearX, f.nearY = srs, x, y
	return f.answer(f.near)
}

func (f *fakeClient) ReferenceCoordinates(_ context.Context, _, _, _, _ string) (ovc.Tree, error) {
	return f.answer(f.coordinates)
}

// propertyXML builds a Consulta_DNPLOC/DNPRC answer for one unit.
func propertyXML(number, age, constructions string) string {
	return `<consulta_dnp xmlns="http://www.catastro.meh.es/">
  <control><cudnp>1</cudnp><cucons>1</cucons><cucul>0</cucul></control>
  <bico>
    <bi>
      <idbi><cn>UR</cn><rc><pc1>98720` + number + `</pc1><pc2>VH5797S</pc2><car>0001</car><cc1>W</cc1><cc2>X</cc2></rc></idbi>
      <dt>
        <loine><cp>28</cp><cm>79</cm></loine>
        <cmc>900</cmc><np>MADRID</np><nm>MADRID</nm>
        <locs><lous><lourb>
          <dir><cv>5112</cv><tv>CL</tv><nv>MAYOR</nv><pnp>` + number + `</pnp></dir>
          <loint><es>1</es><pt>02</pt><pu>A</pu></loint>
        </lourb></lous></locs>
      </dt>
      <ldt>CL MAYOR ` + number + ` Es:1 Pl:02 Pt:A 28013 MADRID (MADRID)</ldt>
      <debi><luso>Residencial</luso><sfc>95</sfc><cpt>100,000000</cpt><ant>` + age + `</ant></debi>
    </bi>
    <lcons>` + constructions + `</lcons>
  </bico>
</consulta_dnp>`
}

func consXML(use, area string) string {
	return `<cons><lcd>` + use + `</lcd><dt><lourb><loint><es>1</es><pt>02</pt><pu>A</pu></loint></lourb></dt><dfcons><stl>` + area + `</stl></dfcons></cons>`
}
