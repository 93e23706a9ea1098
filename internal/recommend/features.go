package recommend

import (
	"strconv"
	"strings"

	"github.com/venuehunt/venuehunt/internal/model"
)

// VenueText is the document a venue contributes to the corpus.
func VenueText(v model.Venue) string {
	parts := []string{
		v.Name,
		v.Description,
		v.Address,
		strconv.Itoa(v.Capacity),
		model.FormatMinor(v.PricePerPersonMinor),
		v.EventCategory.Label(),
		v.SupportedEvent.Label(),
	}
	if v.HasParking {
		parts = append(parts, "parking")
	}
	if v.HasWifi {
		parts = append(parts, "wifi")
	}
	if v.HasSoundSystem {
		parts = append(parts, "sound system")
	}
	if v.HasCatering {
		parts = append(parts, "catering")
	}
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.ToLower(strings.Join(kept, " "))
}
