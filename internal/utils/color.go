package utils

// WeRead's highlight palette, indexed by a bookmark's colorStyle.
var wereadPalette = map[int]string{
	1: "#FFFF0000", // Red
	2: "#FFFF00FF", // Purple
	3: "#FF0000FF", // Blue
	4: "#FF00FF00", // Green
	5: "#FFFFFF00", // Yellow
}

// ColorStyleToHexARGB converts a WeRead colorStyle to ARGB hex format.
// Unknown styles, including 0 (no color chosen), return "".
func ColorStyleToHexARGB(colorStyle int) string {
	return wereadPalette[colorStyle]
}

// ColorToCalloutType maps hex ARGB colors to Obsidian callout types.
// Default return is "quote" for unknown colors.
func ColorToCalloutType(hexColor string) string {
	colorMapping := map[string]string{
		"#FFFFFF00": "quote",   // Yellow highlights -> quotes
		"#FF00FF00": "note",    // Green highlights -> notes
		"#FFFF0000": "warning", // Red highlights -> warnings
		"#FF0000FF": "info",    // Blue highlights -> info
		"#FFFF00FF": "tip",     // Magenta highlights -> tips
	}

	if calloutType, ok := colorMapping[hexColor]; ok {
		return calloutType
	}
	return "quote"
}
