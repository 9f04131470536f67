package query

import (
	"net/url"
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestParse_ReservedKeysNeverBecomeFilters(t *testing.T) {
	params := url.Values{}
	params.Set("page", "2")
	params.Set("sort", "price")
	params.Set("limit", "5")
	params.Set("fields", "name")
	params.Set("difficulty", "easy")

	d, err := Parse(params)
	if err != nil {
		t.Fatal(err)
	}

	expected := bson.D{{Key: "difficulty", Value: "easy"}}
	if !reflect.DeepEqual(d.Filter, expected) {
		t.Errorf("expected filter %v, got %v", expected, d.Filter)
	}
}

func TestParse_RewritesComparisonOperators(t *testing.T) {
	params := url.Values{}
	params.Set("price[gte]", "100")
	params.Set("duration[lt]", "10")

	d, err := Parse(params)
	if err != nil {
		t.Fatal(err)
	}

	expected := bson.D{
		{Key: "duration", Value: bson.M{"$lt": float64(10)}},
		{Key: "price", Value: bson.M{"$gte": float64(100)}},
	}
	if !reflect.DeepEqual(d.Filter, expected) {
		t.Errorf("expected filter %v, got %v", expected, d.Filter)
	}
}

func TestParse_MergesOperatorsPerField(t *testing.T) {
	params := url.Values{}
	params.Set("price[gte]", "100")
	params.Set("price[lte]", "500")

	d, err := Parse(params)
	if err != nil {
		t.Fatal(err)
	}

	expected := bson.D{{Key: "price", Value: bson.M{"$gte": float64(100), "$lte": float64(500)}}}
	if !reflect.DeepEqual(d.Filter, expected) {
		t.Errorf("expected filter %v, got %v", expected, d.Filter)
	}
}

func TestParse_CoercesScalars(t *testing.T) {
	params := url.Values{}
	params.Set("secretTour", "false")
	params.Set("ratingsAverage[gte]", "4.7")
	params.Set("name", "The Forest Hiker")

	d, err := Parse(params)
	if err != nil {
		t.Fatal(err)
	}

	expected := bson.D{
		{Key: "name", Value: "The Forest Hiker"},
		{Key: "ratingsAverage", Value: bson.M{"$gte": 4.7}},
		{Key: "secretTour", Value: false},
	}
	if !reflect.DeepEqual(d.Filter, expected) {
		t.Errorf("expected filter %v, got %v", expected, d.Filter)
	}
}

func TestParse_UnknownOperatorFallsBackToEquality(t *testing.T) {
	params := url.Values{}
	params.Set("price[between]", "100")

	d, err := Parse(params)
	if err != nil {
		t.Fatal(err)
	}

	expected := bson.D{{Key: "price[between]", Value: float64(100)}}
	if !reflect.DeepEqual(d.Filter, expected) {
		t.Errorf("expected filter %v, got %v", expected, d.Filter)
	}
}

func TestParse_SortChain(t *testing.T) {
	params := url.Values{}
	params.Set("sort", "-ratingsAverage,price")

	d, err := Parse(params)
	if err != nil {
		t.Fatal(err)
	}

	expected := bson.D{
		{Key: "ratingsAverage", Value: -1},
		{Key: "price", Value: 1},
	}
	if !reflect.DeepEqual(d.Sort, expected) {
		t.Errorf("expected sort %v, got %v", expected, d.Sort)
	}
}

func TestParse_DefaultSortIsNewestFirst(t *testing.T) {
	d, err := Parse(url.Values{})
	if err != nil {
		t.Fatal(err)
	}

	expected := bson.D{{Key: "createdAt", Value: -1}}
	if !reflect.DeepEqual(d.Sort, expected) {
		t.Errorf("expected sort %v, got %v", expected, d.Sort)
	}
}

func TestParse_ProjectionInclusionList(t *testing.T) {
	params := url.Values{}
	params.Set("fields", "name,price")

	d, err := Parse(params, "createdAt")
	if err != nil {
		t.Fatal(err)
	}

	expected := bson.D{
		{Key: "name", Value: 1},
		{Key: "price", Value: 1},
	}
	if !reflect.DeepEqual(d.Projection, expected) {
		t.Errorf("expected projection %v, got %v", expected, d.Projection)
	}
	if !reflect.DeepEqual(d.Fields, []string{"name", "price"}) {
		t.Errorf("expected the requested field names on the description, got %v", d.Fields)
	}
}

func TestParse_NoFieldsMeansNoFieldList(t *testing.T) {
	d, err := Parse(url.Values{}, "createdAt")
	if err != nil {
		t.Fatal(err)
	}

	if d.Fields != nil {
		t.Errorf("expected no field list for the default projection, got %v", d.Fields)
	}
}

func TestParse_DefaultProjectionHidesFields(t *testing.T) {
	d, err := Parse(url.Values{}, "createdAt", "password")
	if err != nil {
		t.Fatal(err)
	}

	expected := bson.D{
		{Key: "__v", Value: 0},
		{Key: "createdAt", Value: 0},
		{Key: "password", Value: 0},
	}
	if !reflect.DeepEqual(d.Projection, expected) {
		t.Errorf("expected projection %v, got %v", expected, d.Projection)
	}
}

func TestParse_Pagination(t *testing.T) {
	params := url.Values{}
	params.Set("page", "3")
	params.Set("limit", "5")

	d, err := Parse(params)
	if err != nil {
		t.Fatal(err)
	}

	if d.Page != 3 || d.Limit != 5 || d.Skip != 10 {
		t.Errorf("expected page=3 limit=5 skip=10, got page=%d limit=%d skip=%d", d.Page, d.Limit, d.Skip)
	}
	if !d.PageRequested {
		t.Error("expected PageRequested to be set")
	}
}

func TestParse_PaginationDefaults(t *testing.T) {
	d, err := Parse(url.Values{})
	if err != nil {
		t.Fatal(err)
	}

	if d.Page != 1 || d.Limit != DefaultLimit || d.Skip != 0 {
		t.Errorf("expected page=1 limit=%d skip=0, got page=%d limit=%d skip=%d", DefaultLimit, d.Page, d.Limit, d.Skip)
	}
	if d.PageRequested {
		t.Error("expected PageRequested to be unset")
	}
}

func TestParse_RejectsBadPagination(t *testing.T) {
	for _, bad := range []url.Values{
		{"page": []string{"0"}},
		{"page": []string{"abc"}},
		{"limit": []string{"-5"}},
		{"limit": []string{"many"}},
	} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("expected error for %v", bad)
		}
	}
}
