// Package laptime converts lap times between the forms operators type in and
// canonical integer milliseconds.
//
// Parse accepts:
//
//	65250         raw milliseconds (JSON number); clamped to >= 0, truncated
//	"1:05.250"    MINUTES:SECONDS.FRACTION, seconds 0-59
//	"65.25"       SECONDS.FRACTION, seconds unbounded
//	"65250"       any other text is read as a plain decimal number
//
// Fractions carry 1-3 digits and are right-padded to milliseconds, so "5.25"
// is 5250 ms. Format renders "MM:SS.mmm" when the time reaches a full minute
// and "S.mmm" below that. Format is display-only and not an inverse of Parse.
package laptime
