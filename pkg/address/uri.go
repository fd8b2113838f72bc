package address

// Payment request URIs.
//
// URI Format:
//   pivx:<address>?amount=<amount>&memo=<memo>&label=<label>&message=<message>
//
// Multiple recipients use indexed parameters:
//   pivx:?address.1=<addr1>&amount.1=<amt1>&address.2=<addr2>&amount.2=<amt2>
//
// Amounts are decimal PIV with at most 8 fractional digits.

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/suffix-labs/pivx-shield/pkg/consensus"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

const uriScheme = "pivx:"

// PaymentRequest is a parsed payment request URI.
type PaymentRequest struct {
	Payments []Payment
}

// Payment is a single recipient of a payment request.
type Payment struct {
	Address Address
	Amount  *uint64 // satoshis, nil when the payer chooses
	Memo    *string // shielded recipients only
	Label   *string
	Message *string
}

// ParseURI parses a payment request URI, decoding every address against net.
func ParseURI(uri string, net *consensus.Network) (*PaymentRequest, error) {
	if !strings.HasPrefix(uri, uriScheme) {
		return nil, invalidRequest("missing %q scheme", uriScheme)
	}
	uri = strings.TrimPrefix(uri, uriScheme)

	baseAddress, query, _ := strings.Cut(uri, "?")
	params, err := url.ParseQuery(query)
	if err != nil {
		return nil, shield.Decode(shield.ErrInvalidRequest, "query", err)
	}

	var payments []Payment
	if hasIndexedParams(params) {
		if baseAddress != "" {
			return nil, invalidRequest("base address cannot be combined with indexed parameters")
		}
		payments, err = parseIndexedPayments(params, net)
	} else {
		var p Payment
		p, err = parsePayment(baseAddress, params, "", net)
		payments = []Payment{p}
	}
	if err != nil {
		return nil, err
	}
	return &PaymentRequest{Payments: payments}, nil
}

func parsePayment(address string, params url.Values, suffix string, net *consensus.Network) (Payment, error) {
	if a := params.Get("address" + suffix); a != "" {
		if address != "" {
			return Payment{}, invalidRequest("address given twice")
		}
		address = a
	}
	if address == "" {
		return Payment{}, invalidRequest("payment%s has no address", suffix)
	}

	var p Payment
	addr, err := Decode(address, net)
	if err != nil {
		return p, err
	}
	p.Address = addr

	if s := params.Get("amount" + suffix); s != "" {
		amount, err := ParseAmount(s)
		if err != nil {
			return p, err
		}
		p.Amount = &amount
	}
	if memo := params.Get("memo" + suffix); memo != "" {
		if _, ok := addr.(*Shielded); !ok {
			return p, invalidRequest("memo%s sent to a transparent address", suffix)
		}
		p.Memo = &memo
	}
	if label := params.Get("label" + suffix); label != "" {
		p.Label = &label
	}
	if message := params.Get("message" + suffix); message != "" {
		p.Message = &message
	}
	return p, nil
}

func parseIndexedPayments(params url.Values, net *consensus.Network) ([]Payment, error) {
	indices := make(map[int]bool)
	for key := range params {
		idx, ok := extractIndex(key)
		if !ok {
			return nil, invalidRequest("bad parameter %q", key)
		}
		indices[idx] = true
	}

	sorted := make([]int, 0, len(indices))
	for idx := range indices {
		sorted = append(sorted, idx)
	}
	sort.Ints(sorted)

	payments := make([]Payment, 0, len(sorted))
	for _, idx := range sorted {
		suffix := ""
		if idx > 0 {
			suffix = fmt.Sprintf(".%d", idx)
		}
		p, err := parsePayment("", params, suffix, net)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, nil
}

func hasIndexedParams(params url.Values) bool {
	for key := range params {
		if strings.Contains(key, ".") {
			return true
		}
	}
	return false
}

// extractIndex returns N for "name.N" and 0 for a bare "name". Indices range
// over 1-9999 and carry no leading zeros.
func extractIndex(key string) (int, bool) {
	_, suffix, found := strings.Cut(key, ".")
	if !found {
		return 0, true
	}
	if suffix == "" || suffix[0] == '0' {
		return 0, false
	}
	idx, err := strconv.Atoi(suffix)
	if err != nil || idx < 1 || idx > 9999 {
		return 0, false
	}
	return idx, true
}

// ParseAmount parses a decimal PIV amount into satoshis.
func ParseAmount(s string) (uint64, error) {
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" || len(frac) > 8 {
		return 0, invalidRequest("invalid amount %q", s)
	}
	w, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, shield.Decode(shield.ErrInvalidRequest, fmt.Sprintf("invalid amount %q", s), err)
	}
	var f uint64
	if frac != "" {
		f, err = strconv.ParseUint(frac+strings.Repeat("0", 8-len(frac)), 10, 64)
		if err != nil {
			return 0, shield.Decode(shield.ErrInvalidRequest, fmt.Sprintf("invalid amount %q", s), err)
		}
	}
	if w > consensus.MaxMoney/consensus.Coin {
		return 0, invalidRequest("amount %q exceeds maximum", s)
	}
	total := w*consensus.Coin + f
	if total > consensus.MaxMoney {
		return 0, invalidRequest("amount %q exceeds maximum", s)
	}
	return total, nil
}

// FormatAmount renders satoshis as decimal PIV without trailing zeros.
func FormatAmount(amount uint64) string {
	s := fmt.Sprintf("%d.%08d", amount/consensus.Coin, amount%consensus.Coin)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// Encode renders the request as a URI. It is the inverse of ParseURI.
func (req *PaymentRequest) Encode() string {
	if len(req.Payments) == 1 {
		p := req.Payments[0]
		uri := uriScheme + p.Address.String()
		if params := p.params(""); len(params) > 0 {
			uri += "?" + params.Encode()
		}
		return uri
	}

	params := url.Values{}
	for i, p := range req.Payments {
		suffix := fmt.Sprintf(".%d", i+1)
		params.Set("address"+suffix, p.Address.String())
		for k, v := range p.params(suffix) {
			params[k] = v
		}
	}
	return uriScheme + "?" + params.Encode()
}

func (p Payment) params(suffix string) url.Values {
	params := url.Values{}
	if p.Amount != nil {
		params.Set("amount"+suffix, FormatAmount(*p.Amount))
	}
	if p.Memo != nil {
		params.Set("memo"+suffix, *p.Memo)
	}
	if p.Label != nil {
		params.Set("label"+suffix, *p.Label)
	}
	if p.Message != nil {
		params.Set("message"+suffix, *p.Message)
	}
	return params
}

func invalidRequest(format string, args ...any) error {
	return shield.Decode(shield.ErrInvalidRequest, fmt.Sprintf(format, args...), nil)
}
