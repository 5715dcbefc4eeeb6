// internal/normalize/record.go
package normalize

import (
	"strconv"
	"strings"

	"github.com/propdata/agentharvest/internal/agents"
)

// Probe tables: for each canonical field, the raw names tried in priority
// order. Dotted entries reach into nested objects (contact.phone,
// aggregateRating.ratingValue). The lists cover the camelCase, snake_case
// and linked-data spellings seen in the wild; bare container keys go last
// so a nested path wins over an object-valued field of the same name.
var (
	nameKeys = []string{
		"name", "branchName", "branch_name", "displayName", "display_name",
		"agentName", "agent_name",
	}
	branchKeys = []string{
		"branchName", "branch_name", "branchDisplayName", "branch_display_name",
	}
	companyKeys = []string{
		"companyName", "company_name", "brandName", "brand_name", "brand.name",
		"legalName", "organisationName",
	}
	urlKeys = []string{
		"url", "profileUrl", "profile_url", "agentProfileUrl", "agent_profile_url",
		"href", "link", "@id",
	}
	addressKeys = []string{
		"displayAddress", "display_address", "address.displayAddress",
		"address.streetAddress", "streetAddress", "fullAddress", "full_address",
		"address",
	}
	postcodeKeys = []string{
		"postcode", "postalCode", "postal_code", "address.postcode",
		"address.postalCode", "outcode",
	}
	localityKeys = []string{
		"locality", "town", "city", "address.town", "address.locality",
		"address.addressLocality", "addressLocality",
	}
	phoneKeys = []string{
		"phone", "telephone", "phoneNumber", "phone_number", "contact.phone",
		"contact.telephone", "contactTelephone",
	}
	websiteKeys = []string{
		"website", "websiteUrl", "website_url", "externalUrl", "external_url",
		"homepage", "sameAs",
	}
	logoKeys = []string{
		"logoUrl", "logo_url", "logo.url", "logo", "image.url", "image",
		"brandLogo",
	}
	ratingKeys = []string{
		"rating", "reviewRating", "review_rating", "averageRating",
		"average_rating", "aggregateRating.ratingValue", "ratings.overall",
	}
	reviewCountKeys = []string{
		"reviewCount", "review_count", "reviewsCount", "numberOfReviews",
		"aggregateRating.reviewCount", "ratings.count",
	}
	forSaleKeys = []string{
		"listingsForSale", "listings_for_sale", "forSaleCount", "for_sale_count",
		"propertiesForSale", "salesCount", "numberForSale",
	}
	toRentKeys = []string{
		"listingsToRent", "listings_to_rent", "toRentCount", "to_rent_count",
		"propertiesToRent", "lettingsCount", "numberToRent",
	}
	idKeys = []string{
		"agentId", "agent_id", "branchId", "branch_id", "id", "uid",
	}
)

// Record maps a raw candidate of arbitrary shape into a canonical agent
// record, tagged with the extraction tier that found it. A candidate whose
// name normalizes to empty yields nil. The identity key is derived here,
// once, and never recomputed.
func Record(raw map[string]interface{}, origin string, source agents.Source) *agents.Record {
	if raw == nil {
		return nil
	}

	name := stringValue(probe(raw, nameKeys))
	if name == "" {
		return nil
	}

	rec := &agents.Record{
		Name:   name,
		Source: source,
	}

	rec.AgentID = stringValue(probe(raw, idKeys))
	rec.BranchName = stringValue(probe(raw, branchKeys))
	if rec.BranchName == "" {
		rec.BranchName = name
	}
	rec.CompanyName = stringValue(probe(raw, companyKeys))
	rec.URL = AbsoluteURL(probe(raw, urlKeys), origin)
	rec.Address = stringValue(probe(raw, addressKeys))
	rec.PostalCode = PostalCode(stringValue(probe(raw, postcodeKeys)))
	if rec.PostalCode == "" {
		rec.PostalCode = PostalCode(rec.Address)
	}
	rec.Locality = localityValue(probe(raw, localityKeys))
	rec.Phone = Phone(stringValue(probe(raw, phoneKeys)))
	rec.Website = AbsoluteURL(probe(raw, websiteKeys), origin)
	rec.Logo = AbsoluteURL(probe(raw, logoKeys), origin)
	rec.Rating = Number(probe(raw, ratingKeys))
	rec.ReviewCount = Int(probe(raw, reviewCountKeys))
	rec.ListingsForSale = Int(probe(raw, forSaleKeys))
	rec.ListingsToRent = Int(probe(raw, toRentKeys))

	rec.Key = agents.IdentityKey(rec.AgentID, rec.URL, rec.Name, rec.Address)
	return rec
}

// probe walks the key list and returns the first non-empty value. Dotted
// keys descend through nested objects; list values collapse to their first
// element.
func probe(raw map[string]interface{}, keys []string) interface{} {
	for _, key := range keys {
		var v interface{}
		if strings.Contains(key, ".") {
			v = dig(raw, strings.Split(key, "."))
		} else {
			v = raw[key]
		}
		v = firstElement(v)
		if !emptyValue(v) {
			return v
		}
	}
	return nil
}

func dig(m map[string]interface{}, path []string) interface{} {
	var cur interface{} = m
	for _, p := range path {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur = obj[p]
	}
	return cur
}

func firstElement(v interface{}) interface{} {
	if list, ok := v.([]interface{}); ok {
		if len(list) == 0 {
			return nil
		}
		return firstElement(list[0])
	}
	return v
}

func emptyValue(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}

// stringValue renders a probed scalar as cleaned text. Numeric ids keep
// their integer spelling; maps and booleans are not text.
func stringValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return CleanText(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}

// localityValue cleans a town/city name, fixing all-caps source values.
func localityValue(v interface{}) string {
	s := stringValue(v)
	if s == "" {
		return ""
	}
	if s == strings.ToUpper(s) && s != strings.ToLower(s) {
		return TitleCase(s)
	}
	return s
}
