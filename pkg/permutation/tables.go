package permutation

// letters is the substitution alphabet: every character valid in an LDH label
// except the hyphen.
const letters = "abcdefghijklmnopqrstuvwxyz0123456789"

// popularSuffixes is the curated suffix list used by the suffix-swap strategy.
var popularSuffixes = []string{
	"com", "net", "org", "edu", "gov",
	"info", "biz", "co", "io", "me",
	"app", "dev", "tv", "fm", "xyz",
	"online", "site", "shop", "store", "top",
	"club", "live", "tech", "cc", "us",
}

type glyphPair struct {
	latin    string
	cyrillic string
}

// latinToCyrillic is applied in order; each step replaces on top of the previous one.
var latinToCyrillic = []glyphPair{
	{"a", "а"}, {"b", "ь"}, {"c", "с"}, {"d", "ԁ"}, {"e", "е"}, {"g", "ԍ"}, {"h", "һ"},
	{"i", "і"}, {"j", "ј"}, {"k", "к"}, {"l", "ӏ"}, {"m", "м"}, {"o", "о"}, {"p", "р"},
	{"q", "ԛ"}, {"s", "ѕ"}, {"t", "т"}, {"v", "ѵ"}, {"w", "ԝ"}, {"x", "х"}, {"y", "у"},
}

// keyboard maps a key to the keys physically adjacent to it.
type keyboard map[rune]string

var qwerty = keyboard{
	'1': "2q", '2': "3wq1", '3': "4ew2", '4': "5re3", '5': "6tr4", '6': "7yt5", '7': "8uy6", '8': "9iu7",
	'9': "0oi8", '0': "po9",
	'q': "12wa", 'w': "3esaq2", 'e': "4rdsw3", 'r': "5tfde4", 't': "6ygfr5", 'y': "7uhgt6", 'u': "8ijhy7",
	'i': "9okju8", 'o': "0plki9", 'p': "lo0",
	'a': "qwsz", 's': "edxzaw", 'd': "rfcxse", 'f': "tgvcdr", 'g': "yhbvft", 'h': "ujnbgy", 'j': "ikmnhu",
	'k': "olmji", 'l': "kop",
	'z': "asx", 'x': "zsdc", 'c': "xdfv", 'v': "cfgb", 'b': "vghn", 'n': "bhjm", 'm': "njk",
}

var qwertz = keyboard{
	'1': "2q", '2': "3wq1", '3': "4ew2", '4': "5re3", '5': "6tr4", '6': "7zt5", '7': "8uz6", '8': "9iu7",
	'9': "0oi8", '0': "po9",
	'q': "12wa", 'w': "3esaq2", 'e': "4rdsw3", 'r': "5tfde4", 't': "6zgfr5", 'z': "7uhgt6", 'u': "8ijhz7",
	'i': "9okju8", 'o': "0plki9", 'p': "lo0",
	'a': "qwsy", 's': "edxyaw", 'd': "rfcxse", 'f': "tgvcdr", 'g': "zhbvft", 'h': "ujnbgz", 'j': "ikmnhu",
	'k': "olmji", 'l': "kop",
	'y': "asx", 'x': "ysdc", 'c': "xdfv", 'v': "cfgb", 'b': "vghn", 'n': "bhjm", 'm': "njk",
}

var azerty = keyboard{
	'1': "2a", '2': "3za1", '3': "4ez2", '4': "5re3", '5': "6tr4", '6': "7yt5", '7': "8uy6", '8': "9iu7",
	'9': "0oi8", '0': "po9",
	'a': "2zq1", 'z': "3esqa2", 'e': "4rdsz3", 'r': "5tfde4", 't': "6ygfr5", 'y': "7uhgt6", 'u': "8ijhy7",
	'i': "9okju8", 'o': "0plki9", 'p': "lo0m",
	'q': "zswa", 's': "edxwqz", 'd': "rfcxse", 'f': "tgvcdr", 'g': "yhbvft", 'h': "ujnbgy", 'j': "iknhu",
	'k': "olji", 'l': "kopm", 'm': "lp",
	'w': "sxq", 'x': "wsdc", 'c': "xdfv", 'v': "cfgb", 'b': "vghn", 'n': "bhj",
}

var keyboards = []keyboard{qwerty, qwertz, azerty}

// glyphTable maps a character or short sequence to look-alike replacements.
type glyphTable map[string][]string

var unicodeGlyphs = glyphTable{
	"2":  {"ƻ"},
	"3":  {"ʒ"},
	"5":  {"ƽ"},
	"a":  {"à", "á", "â", "ã", "ä", "å", "ɑ", "ạ", "ǎ", "ă", "ȧ", "ą", "ā"},
	"ae": {"æ"},
	"b":  {"ḃ", "ḅ", "ƅ", "ʙ", "ḇ", "ɓ"},
	"c":  {"ç", "ć", "ĉ", "ċ", "č", "ƈ", "ᴄ"},
	"d":  {"ď", "ḍ", "ḋ", "ɖ", "ḏ", "ɗ", "ḓ", "ḑ", "đ"},
	"e":  {"è", "é", "ê", "ë", "ē", "ĕ", "ė", "ę", "ě", "ẹ", "ȩ", "ɇ"},
	"f":  {"ḟ", "ƒ"},
	"g":  {"ĝ", "ğ", "ġ", "ģ", "ǧ", "ǵ", "ɡ", "ɢ"},
	"h":  {"ĥ", "ħ", "ȟ", "ḣ", "ḥ", "ḧ", "ḩ", "ḫ", "ẖ", "ɦ"},
	"i":  {"ì", "í", "î", "ï", "ĩ", "ī", "ĭ", "į", "ı", "ǐ", "ỉ", "ị", "ɨ", "ɩ", "ɪ"},
	"j":  {"ĵ", "ǰ", "ɉ", "ʝ"},
	"k":  {"ķ", "ĸ", "ǩ", "ḳ", "ḵ", "ᴋ"},
	"l":  {"ĺ", "ļ", "ľ", "ł", "ɫ"},
	"m":  {"ḿ", "ṁ", "ṃ", "ɱ", "ᴍ"},
	"n":  {"ñ", "ń", "ņ", "ň", "ǹ", "ṅ", "ṇ", "ṉ", "ŋ"},
	"o":  {"ò", "ó", "ô", "õ", "ö", "ø", "ō", "ŏ", "ő", "ơ", "ȯ", "ọ", "ỏ", "ᴏ"},
	"oe": {"œ"},
	"p":  {"ṕ", "ṗ", "ƥ", "ƿ"},
	"q":  {"ʠ"},
	"r":  {"ŕ", "ŗ", "ř", "ȑ", "ȓ", "ṙ", "ṛ", "ṟ", "ɍ", "ɼ", "ɽ", "ɾ", "ʀ"},
	"s":  {"ś", "ŝ", "ş", "š", "ș", "ṡ", "ṣ", "ʂ", "ꜱ"},
	"ss": {"ß"},
	"t":  {"ţ", "ť", "ŧ", "ț", "ṫ", "ṭ", "ƫ"},
	"u":  {"ù", "ú", "û", "ü", "ũ", "ū", "ŭ", "ů", "ű", "ų", "ư", "ǔ", "ȕ", "ȗ", "ụ", "ʉ", "ᴜ"},
	"v":  {"ṽ", "ṿ", "ᴠ", "ᶌ"},
	"w":  {"ŵ", "ẁ", "ẃ", "ẅ", "ẇ", "ẉ", "ẘ", "ᴡ"},
	"x":  {"ẋ", "ẍ"},
	"y":  {"ý", "ÿ", "ŷ", "ȳ", "ẏ", "ỵ", "ɏ", "ƴ", "ʏ"},
	"z":  {"ź", "ż", "ž", "ƶ", "ȥ", "ʐ", "ẑ", "ẓ", "ẕ"},
}

// tldGlyphs holds the diacritics a registry actually accepts in IDN labels.
var tldGlyphs = map[string]glyphTable{
	"de": {"a": {"ä"}, "o": {"ö"}, "u": {"ü"}, "ss": {"ß"}},
	"at": {"a": {"ä"}, "o": {"ö"}, "u": {"ü"}, "ss": {"ß"}},
	"ch": {"a": {"ä", "à"}, "e": {"é", "è"}, "o": {"ö"}, "u": {"ü"}},
	"dk": {"a": {"å"}, "ae": {"æ"}, "o": {"ø"}},
	"no": {"a": {"å"}, "ae": {"æ"}, "o": {"ø"}},
	"se": {"a": {"å", "ä"}, "o": {"ö"}},
	"fi": {"a": {"å", "ä"}, "o": {"ö"}},
	"pl": {"a": {"ą"}, "c": {"ć"}, "e": {"ę"}, "l": {"ł"}, "n": {"ń"}, "o": {"ó"}, "s": {"ś"}, "z": {"ź", "ż"}},
	"es": {"a": {"á"}, "e": {"é"}, "i": {"í"}, "n": {"ñ"}, "o": {"ó"}, "u": {"ú", "ü"}, "c": {"ç"}},
	"fr": {"a": {"à", "â"}, "c": {"ç"}, "e": {"é", "è", "ê", "ë"}, "i": {"î", "ï"}, "o": {"ô"}, "u": {"ù", "û", "ü"}, "y": {"ÿ"}, "ae": {"æ"}, "oe": {"œ"}},
	"pt": {"a": {"á", "â", "ã", "à"}, "c": {"ç"}, "e": {"é", "ê"}, "i": {"í"}, "o": {"ó", "ô", "õ"}, "u": {"ú"}},
	"br": {"a": {"á", "â", "ã", "à"}, "c": {"ç"}, "e": {"é", "ê"}, "i": {"í"}, "o": {"ó", "ô", "õ"}, "u": {"ú"}},
	"tr": {"c": {"ç"}, "g": {"ğ"}, "i": {"ı"}, "o": {"ö"}, "s": {"ş"}, "u": {"ü"}},
	"cz": {"a": {"á"}, "c": {"č"}, "d": {"ď"}, "e": {"é", "ě"}, "i": {"í"}, "n": {"ň"}, "o": {"ó"}, "r": {"ř"}, "s": {"š"}, "t": {"ť"}, "u": {"ú", "ů"}, "y": {"ý"}, "z": {"ž"}},
	"hu": {"a": {"á"}, "e": {"é"}, "i": {"í"}, "o": {"ó", "ö", "ő"}, "u": {"ú", "ü", "ű"}},
	"is": {"a": {"á"}, "d": {"ð"}, "e": {"é"}, "i": {"í"}, "o": {"ó", "ö"}, "u": {"ú"}, "y": {"ý"}, "ae": {"æ"}},
}

// asciiGlyphs lists ASCII sequences that render close to each other.
var asciiGlyphs = glyphTable{
	"0":  {"o"},
	"1":  {"l", "i"},
	"3":  {"8"},
	"6":  {"9"},
	"8":  {"3"},
	"9":  {"6"},
	"b":  {"d", "lb"},
	"c":  {"e"},
	"cl": {"d"},
	"d":  {"b", "cl", "dl"},
	"e":  {"c"},
	"g":  {"q"},
	"h":  {"lh"},
	"i":  {"1", "l"},
	"k":  {"lc"},
	"l":  {"1", "i"},
	"m":  {"n", "nn", "rn", "rr"},
	"n":  {"m", "r"},
	"o":  {"0"},
	"q":  {"g"},
	"rn": {"m"},
	"rr": {"m"},
	"u":  {"v"},
	"v":  {"u"},
	"vv": {"w"},
	"w":  {"vv"},
}
