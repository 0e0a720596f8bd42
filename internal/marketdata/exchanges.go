package marketdata

// exchangeNames maps Yahoo Finance exchange codes to the names users know.
var exchangeNames = map[string]string{
	"NMS": "NASDAQ",
	"NGM": "NASDAQ",
	"NCM": "NASDAQ",
	"NAS": "NASDAQ",
	"NYQ": "NYSE",
	"NYS": "NYSE",
	"ASE": "NYSE American",
	"PCX": "NYSE Arca",
	"BTS": "Cboe BZX",
	"PNK": "OTC Markets",
	"OQB": "OTC Markets",
	"OQX": "OTC Markets",
	"SNP": "S&P",
	"DJI": "Dow Jones",
	"WCB": "Cboe Indices",
	"TOR": "Toronto",
	"LSE": "London",
	"GER": "XETRA",
	"FRA": "Frankfurt",
	"PAR": "Euronext Paris",
	"AMS": "Euronext Amsterdam",
	"JPX": "Tokyo",
	"HKG": "Hong Kong",
	"NSI": "NSE India",
	"BSE": "BSE India",
	"ASX": "Australia",
	"CCC": "Crypto",
	"CCY": "Currency",
}

// ExchangeName returns the display name for a Yahoo exchange code, or the
// code itself when unknown.
func ExchangeName(code string) string {
	if name, ok := exchangeNames[code]; ok {
		return name
	}
	return code
}
