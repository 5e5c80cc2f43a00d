package usecase

import "strings"

// nonDomesticKeywords are country and region names used to detect queries the
// self-hosted geocoding index (domestic data only) cannot answer. City names
// are deliberately absent: a foreign city should still hit the local index
// and fall through on an empty answer, not be pre-judged by a word list.
var nonDomesticKeywords = []string{
	"afghanistan", "albania", "algeria", "argentina", "armenia", "australia",
	"austria", "azerbaijan", "bangladesh", "belarus", "belgium", "bolivia",
	"bosnia", "brazil", "bulgaria", "cambodia", "cameroon", "canada", "chile",
	"china", "colombia", "croatia", "cuba", "cyprus", "czech", "denmark",
	"ecuador", "egypt", "england", "estonia", "ethiopia", "finland", "france",
	"georgia republic", "germany", "ghana", "greece", "guatemala", "honduras",
	"hungary", "iceland", "india", "indonesia", "iran", "iraq", "ireland",
	"israel", "italy", "jamaica", "japan", "jordan", "kazakhstan", "kenya",
	"korea", "kuwait", "laos", "latvia", "lebanon", "lithuania", "luxembourg",
	"malaysia", "mexico", "mongolia", "morocco", "myanmar", "nepal",
	"netherlands", "new zealand", "nicaragua", "nigeria", "norway", "pakistan",
	"panama", "paraguay", "peru", "philippines", "poland", "portugal", "qatar",
	"romania", "russia", "saudi arabia", "scotland", "serbia", "singapore",
	"slovakia", "slovenia", "south africa", "spain", "sri lanka", "sweden",
	"switzerland", "taiwan", "thailand", "tunisia", "turkey", "ukraine",
	"united arab emirates", "united kingdom", "uruguay", "uzbekistan",
	"venezuela", "vietnam", "wales", "zimbabwe",
}

// likelyNonDomestic reports whether a query names a foreign country or
// region, in which case the self-hosted provider is skipped.
func likelyNonDomestic(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range nonDomesticKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}
