package query

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
)

// DefaultLimit is the page size used when the request does not ask for one
const DefaultLimit = 100

// versionField is written by legacy importers and never belongs in responses
const versionField = "__v"

// ErrPageOutOfRange is returned when a requested page starts beyond the matching documents
var ErrPageOutOfRange = errors.New("this page does not exist")

// controlParams are reserved for the builder itself and never become filters
var controlParams = map[string]bool{
	"page":   true,
	"sort":   true,
	"limit":  true,
	"fields": true,
}

var comparisonOperators = map[string]string{
	"gte": "$gte",
	"gt":  "$gt",
	"lte": "$lte",
	"lt":  "$lt",
}

// Description is a finished description of a collection query: filter, sort
// order, projection and paging offsets. It carries no connection and performs
// no I/O; repositories execute it.
type Description struct {
	Filter        bson.D
	Sort          bson.D
	Projection    bson.D
	Fields        []string
	Page          int64
	Limit         int64
	Skip          int64
	PageRequested bool
}

// Parse translates a request's query parameters into a Description. The four
// stages are pure and each returns a new value, so leaving a parameter out is
// the same as applying its default. Fields listed in hidden are excluded from
// the default projection; asking for them explicitly via fields brings them
// back.
func Parse(params url.Values, hidden ...string) (Description, error) {
	d := withFilter(Description{}, params)
	d = withSort(d, params.Get("sort"))
	d = withProjection(d, params.Get("fields"), hidden)
	return withPagination(d, params)
}

// withFilter turns every non reserved parameter into a filter condition.
// Keys of the form field[gte|gt|lte|lt] become comparison operators, possibly
// merged per field; everything else is an equality match. Unknown fields are
// passed through untouched, they simply match no documents.
func withFilter(d Description, params url.Values) Description {
	operators := map[string]bson.M{}
	equality := map[string]interface{}{}

	for key, values := range params {
		if controlParams[key] || len(values) == 0 {
			continue
		}

		field, operator, ok := splitOperator(key)
		if ok {
			if operators[field] == nil {
				operators[field] = bson.M{}
			}
			operators[field][operator] = coerce(values[0])
			continue
		}

		equality[key] = coerce(values[0])
	}

	fields := make([]string, 0, len(operators)+len(equality))
	for field := range operators {
		fields = append(fields, field)
	}
	for field := range equality {
		if _, ok := operators[field]; !ok {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)

	filter := bson.D{}
	for _, field := range fields {
		if conditions, ok := operators[field]; ok {
			filter = append(filter, bson.E{Key: field, Value: conditions})
			continue
		}
		filter = append(filter, bson.E{Key: field, Value: equality[field]})
	}

	d.Filter = filter
	return d
}

// withSort parses the comma separated sort list, a leading - meaning
// descending. List order establishes the tie break chain. Without a sort
// parameter newest documents come first.
func withSort(d Description, sortParam string) Description {
	if sortParam == "" {
		d.Sort = bson.D{{Key: "createdAt", Value: -1}}
		return d
	}

	sortOrder := bson.D{}
	for _, field := range strings.Split(sortParam, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		direction := 1
		if strings.HasPrefix(field, "-") {
			direction = -1
			field = field[1:]
		}
		sortOrder = append(sortOrder, bson.E{Key: field, Value: direction})
	}

	d.Sort = sortOrder
	return d
}

// withProjection builds the inclusion list from the fields parameter. Without
// one, everything except the version field and the caller's hidden fields is
// returned. The requested field names are kept on the Description so response
// rendering can limit itself to the same set the database was asked for.
func withProjection(d Description, fieldsParam string, hidden []string) Description {
	if fieldsParam == "" {
		projection := bson.D{{Key: versionField, Value: 0}}
		for _, field := range hidden {
			projection = append(projection, bson.E{Key: field, Value: 0})
		}
		d.Projection = projection
		return d
	}

	projection := bson.D{}
	fields := []string{}
	for _, field := range strings.Split(fieldsParam, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		projection = append(projection, bson.E{Key: field, Value: 1})
		fields = append(fields, field)
	}

	d.Projection = projection
	d.Fields = fields
	return d
}

func withPagination(d Description, params url.Values) (Description, error) {
	page := int64(1)
	limit := int64(DefaultLimit)

	if raw := params.Get("page"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 {
			return Description{}, errors.Errorf("page must be a positive integer, got %q", raw)
		}
		page = parsed
		d.PageRequested = true
	}

	if raw := params.Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 {
			return Description{}, errors.Errorf("limit must be a positive integer, got %q", raw)
		}
		limit = parsed
	}

	d.Page = page
	d.Limit = limit
	d.Skip = (page - 1) * limit
	return d, nil
}

func splitOperator(key string) (string, string, bool) {
	open := strings.Index(key, "[")
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return "", "", false
	}

	operator, ok := comparisonOperators[key[open+1:len(key)-1]]
	if !ok {
		return "", "", false
	}

	return key[:open], operator, true
}

// coerce guesses the bson type of a query string scalar. There is no schema
// cast layer in front of the database, so numeric and boolean literals have
// to be converted here or they would only ever match string fields.
func coerce(value string) interface{} {
	if number, err := strconv.ParseFloat(value, 64); err == nil {
		return number
	}
	if boolean, err := strconv.ParseBool(value); err == nil {
		return boolean
	}
	return value
}
