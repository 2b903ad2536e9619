// Package identifier produces and validates ICCID and MSISDN values for
// Croatian SIM inventory. Generation yields format-valid candidates only;
// store-wide uniqueness is the store's unique constraints plus the caller's
// bounded retry, never an in-process cache.
package identifier

import (
	"math/rand/v2"
	"regexp"
	"strconv"
)

// ICCID layout: 89 (telecom MII) + 385 (Croatia) + 2-digit operator code +
// 11 fill digits + 1 Luhn check digit.
const (
	ICCIDLength = 19

	iccidPrefix   = "89385"
	iccidFillLen  = ICCIDLength - len(iccidPrefix) - 2 - 1
	msisdnCountry = "+385"
	msisdnSubLen  = 7
)

// Operator codes: HT=01, A1=10, Telemach=02.
var operatorCodes = []string{"01", "10", "02"}

var carrierNames = map[string]string{
	"01": "Hrvatski Telekom",
	"10": "A1 Hrvatska",
	"02": "Telemach Hrvatska",
}

// Common Croatian mobile prefixes.
var mobilePrefixes = []string{"91", "92", "95", "97", "98", "99"}

var (
	iccidPattern  = regexp.MustCompile(`^89385(01|10|02)\d{12}$`)
	msisdnPattern = regexp.MustCompile(`^\+385(91|92|95|97|98|99)\d{7}$`)
)

// ValidICCID reports whether s is a well-formed ICCID: correct prefix and
// length, digits only, Luhn checksum satisfied. Re-checked on every direct
// input path (bulk import), not only on generation.
func ValidICCID(s string) bool {
	return len(s) == ICCIDLength && iccidPattern.MatchString(s) && LuhnValid(s)
}

// ValidMSISDN reports whether s is a well-formed Croatian mobile number in
// E.164 format.
func ValidMSISDN(s string) bool {
	return msisdnPattern.MatchString(s)
}

// Carrier returns the carrier name encoded in a valid ICCID's operator
// code, or "" for anything else.
func Carrier(iccid string) string {
	if !ValidICCID(iccid) {
		return ""
	}
	return carrierNames[iccid[len(iccidPrefix):len(iccidPrefix)+2]]
}

// Generator produces random identifier candidates. Safe for concurrent use.
type Generator struct{}

func NewGenerator() Generator {
	return Generator{}
}

// ICCID returns a fresh format-valid ICCID candidate.
func (Generator) ICCID() string {
	payload := iccidPrefix + operatorCodes[rand.IntN(len(operatorCodes))] + randomDigits(iccidFillLen)
	return payload + strconv.Itoa(LuhnCheckDigit(payload))
}

// MSISDN returns a fresh format-valid MSISDN candidate.
func (Generator) MSISDN() string {
	return msisdnCountry + mobilePrefixes[rand.IntN(len(mobilePrefixes))] + randomDigits(msisdnSubLen)
}

func randomDigits(n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte('0' + rand.IntN(10))
	}
	return string(buf)
}
