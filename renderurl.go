package pistonpress

import (
	"encoding/json"
	"net/url"
	"strings"
)

// RenderPath is the render endpoint path on the loopback server.
const RenderPath = "/render"

// RenderURL builds the render endpoint URL for a template and its values.
// Map keys are serialized in sorted order, so equal inputs yield identical URLs.
// Values that cannot be JSON-encoded produce an InvalidInput error.
func RenderURL(baseURL, templateName string, values Values) (string, error) {
	if values == nil {
		values = Values{}
	}

	serialized, err := json.Marshal(values)
	if err != nil {
		return "", &Error{Kind: KindInvalidInput, Message: "values are not JSON-serializable", Err: err}
	}

	query := url.Values{}
	query.Set("templateName", templateName)
	query.Set("values", string(serialized))

	return strings.TrimRight(baseURL, "/") + RenderPath + "?" + query.Encode(), nil
}
