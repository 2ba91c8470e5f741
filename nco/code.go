package nco

// codeDenylist holds 4-digit strings that look like occupation codes but
// are publication years appearing throughout the NCO-2015 volumes.
var codeDenylist = map[string]bool{
	"2015": true, "2016": true, "2017": true,
	"2018": true, "2019": true, "2020": true, "2021": true,
}

// ValidCode reports whether s is a well-formed NCO-2015 occupation code:
// exactly four ASCII digits, leading digit 1-9, and not a calendar year
// from the denylist.
func ValidCode(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	if s[0] == '0' {
		return false
	}
	return !codeDenylist[s]
}

// divisionNames maps the leading code digit to the NCO-2015 division title.
var divisionNames = map[byte]string{
	'1': "Legislators, Senior Officials and Managers",
	'2': "Professionals",
	'3': "Technicians and Associate Professionals",
	'4': "Clerks",
	'5': "Service Workers and Shop & Market Sales Workers",
	'6': "Skilled Agricultural and Fishery Workers",
	'7': "Craft and Related Trades Workers",
	'8': "Plant and Machine Operators and Assemblers",
	'9': "Elementary Occupations",
}

// DivisionName returns the NCO-2015 division title for a code's leading
// digit, or an empty string for malformed codes.
func DivisionName(code string) string {
	if code == "" {
		return ""
	}
	return divisionNames[code[0]]
}
