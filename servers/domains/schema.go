package domains

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/domainscope/domains-mcp"
)

// searchArgs is the argument set shared by every tool. Only keywords is
// required; the remaining fields refine domain results or select a product
// category.
type searchArgs struct {
	Keywords       string `json:"keywords"`
	DomainName     string `json:"domainName,omitempty"`
	BusinessType   string `json:"businessType,omitempty"`
	TargetAudience string `json:"targetAudience,omitempty"`
	Budget         string `json:"budget,omitempty"`
	Category       string `json:"category,omitempty"`
}

var toolInputSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "keywords": {
      "type": "string",
      "description": "User's own words describing the business idea or domain request"
    },
    "domainName": {
      "type": "string",
      "description": "Specific domain name to check, if the user asked for one"
    },
    "businessType": {
      "type": "string",
      "description": "Type of business, e.g. restaurant, consulting, retail"
    },
    "targetAudience": {
      "type": "string",
      "description": "Intended audience for the business"
    },
    "budget": {
      "type": "string",
      "description": "Budget hint, e.g. cheap, premium"
    },
    "category": {
      "type": "string",
      "description": "Product category to recommend: email, website, or ssl-security"
    }
  },
  "required": ["keywords"],
  "additionalProperties": false
}`)

// decodeSearchArgs parses raw tool arguments strictly. Unknown fields and an
// empty keywords value are rejected before any backend work happens.
func decodeSearchArgs(raw json.RawMessage) (searchArgs, error) {
	var args searchArgs

	if len(raw) == 0 {
		return args, fmt.Errorf("%w: missing arguments", mcp.ErrInvalidArguments)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&args); err != nil {
		return args, fmt.Errorf("%w: %v", mcp.ErrInvalidArguments, err)
	}
	if args.Keywords == "" {
		return args, fmt.Errorf("%w: keywords must not be empty", mcp.ErrInvalidArguments)
	}

	return args, nil
}
