package erp

import (
	"fmt"
	"strconv"
)

// Units that mark a product as sold by length. A product whose base or
// commercial unit is one of these gets the synthetic "Длина" characteristic.
var lengthUnits = map[string]struct{}{
	"бухта": {}, "метр": {}, "м.": {}, "см.": {}, "мм.": {},
	"м": {}, "см": {}, "мм": {},
}

func isLengthUnit(unit string) bool {
	_, ok := lengthUnits[unit]
	return ok
}

func isMetre(unit string) bool {
	return unit == "метр" || unit == "м" || unit == "м."
}

func isCentimetre(unit string) bool {
	return unit == "см" || unit == "см."
}

// LengthValue is the stored display value of the length characteristic,
// for example "1 бухта".
func LengthValue(unitPak float64, unit string) string {
	return fmt.Sprintf("%s %s", formatNumber(unitPak), unit)
}

// LengthAliases derives the alias list stored in extra_value. Coil goods
// measured commercially in metres or centimetres get every unit spelling
// (";100 метр;100 м.;100 м;10000 см.;...;") so converted queries match;
// metre goods sold as coils get only the ";бухта;" alias. Everything else
// has no aliases.
func LengthAliases(unit, comUnit string, comUnitPak float64) string {
	switch {
	case isMetre(unit):
		if comUnit == "бухта" {
			return ";" + comUnit + ";"
		}
	case unit == "бухта":
		if isMetre(comUnit) {
			m := comUnitPak
			return fmt.Sprintf(";%s метр;%s м.;%s м;%s см.;%s см;%s мм.;%s мм;",
				formatNumber(m), formatNumber(m), formatNumber(m),
				formatNumber(m*100), formatNumber(m*100),
				formatNumber(m*1000), formatNumber(m*1000))
		}
		if isCentimetre(comUnit) {
			cm := comUnitPak
			return fmt.Sprintf(";%s метр;%s м.;%s м;%s см.;%s см;%s мм.;%s мм;",
				formatNumber(cm*100), formatNumber(cm*100), formatNumber(cm*100),
				formatNumber(cm), formatNumber(cm),
				formatNumber(cm/10), formatNumber(cm/10))
		}
	}
	return ""
}

// formatNumber renders a feed quantity without trailing zeros: 100 stays
// "100", 1.5 stays "1.5".
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
