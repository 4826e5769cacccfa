package availability

// GenerateSlots splits [start, end) into consecutive slots of duration
// minutes and returns their start times. A final slot ending exactly at end
// is included; one that would run over is not. Malformed bounds, an empty
// range or a non-positive duration yield no slots.
func GenerateSlots(start, end string, duration int) []string {
	if duration <= 0 {
		return nil
	}
	from, err := ParseClock(start)
	if err != nil {
		return nil
	}
	to, err := ParseClock(end)
	if err != nil {
		return nil
	}

	var slots []string
	for m := from; m+duration <= to; m += duration {
		slots = append(slots, FormatClock(m))
	}
	return slots
}
