package ingest

import "regexp"

// SymbolNA is the sentinel for file names outside the NASDAQ naming
// convention. It is a valid symbol value, not an error.
const SymbolNA = "NA"

var symbolRe = regexp.MustCompile(`NASDAQ_([A-Z]{1,5})_2022\.pdf`)

// Symbol derives the ticker from a filing file name of the shape
// NASDAQ_<TICKER>_2022.pdf. Tickers are 1-5 uppercase letters; anything else
// yields SymbolNA.
func Symbol(fileName string) string {
	if m := symbolRe.FindStringSubmatch(fileName); m != nil {
		return m[1]
	}
	return SymbolNA
}
