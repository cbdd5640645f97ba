package reducer

import (
	"strings"
)

// unicodeTokens maps date pattern letters to Go layout fragments, longest first.
var unicodeTokens = []struct{ pattern, layout string }{
	{"yyyy", "2006"},
	{"yyy", "2006"},
	{"yy", "06"},
	{"y", "2006"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"MM", "01"},
	{"M", "1"},
	{"dd", "02"},
	{"d", "2"},
	{"DDD", "002"},
	{"DD", "__2"},
	{"D", "__2"},
	{"EEEE", "Monday"},
	{"EEE", "Mon"},
	{"EE", "Mon"},
	{"E", "Mon"},
	{"HH", "15"},
	{"hh", "03"},
	{"h", "3"},
	{"mm", "04"},
	{"m", "4"},
	{"ss", "05"},
	{"s", "5"},
	{"SSS", "000"},
	{"SS", "00"},
	{"S", "0"},
	{"a", "PM"},
	{"XXX", "Z07:00"},
	{"Z", "-0700"},
}

var strftimeTokens = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'e': "_2",
	'B': "January",
	'b': "Jan",
	'A': "Monday",
	'a': "Mon",
	'H': "15",
	'I': "03",
	'M': "04",
	'S': "05",
	'p': "PM",
	'z': "-0700",
	'Z': "MST",
	'%': "%",
}

// goLayout translates a date pattern into a Go time layout. Patterns
// containing '%' are read as strftime; others as Unicode patterns such as
// "yyyy-MM-dd", where text in single quotes is literal.
func goLayout(pattern string) string {
	if strings.Contains(pattern, "%") {
		return strftimeLayout(pattern)
	}
	return unicodeLayout(pattern)
}

func strftimeLayout(pattern string) string {
	var sb strings.Builder
	for i := 0; i < len(pattern); i++ {
		if pattern[i] != '%' || i+1 == len(pattern) {
			sb.WriteByte(pattern[i])
			continue
		}
		i++
		if layout, ok := strftimeTokens[pattern[i]]; ok {
			sb.WriteString(layout)
		} else {
			sb.WriteByte('%')
			sb.WriteByte(pattern[i])
		}
	}
	return sb.String()
}

func unicodeLayout(pattern string) string {
	var sb strings.Builder
	for i := 0; i < len(pattern); {
		if pattern[i] == '\'' {
			end := strings.IndexByte(pattern[i+1:], '\'')
			if end < 0 {
				sb.WriteString(pattern[i+1:])
				break
			}
			sb.WriteString(pattern[i+1 : i+1+end])
			i += end + 2
			continue
		}
		matched := false
		for _, tok := range unicodeTokens {
			if strings.HasPrefix(pattern[i:], tok.pattern) {
				sb.WriteString(tok.layout)
				i += len(tok.pattern)
				matched = true
				break
			}
		}
		if !matched {
			sb.WriteByte(pattern[i])
			i++
		}
	}
	return sb.String()
}
