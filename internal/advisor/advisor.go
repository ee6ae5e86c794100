// Package advisor implements the game.Advisor capability: contextual
// financial guidance for the card a player is facing. The rule-based
// implementation is deterministic and always available; the Gemini one
// calls out and falls back to the rules when the API misbehaves.
package advisor

import (
	"context"

	"arthneeti/internal/game"
)

// RuleBased picks a curated tip for the card's category. Deterministic in
// (card, language) so repeated asks don't flip-flop.
type RuleBased struct{}

func NewRuleBased() *RuleBased { return &RuleBased{} }

func (r *RuleBased) Name() string { return "rules" }

func (r *RuleBased) Advise(ctx context.Context, s *game.Session, card *game.ScenarioCard, lang game.Language) (string, error) {
	tips, ok := categoryTips[card.Category]
	if !ok {
		tips = genericTips
	}
	tip := tips[int(card.ID)%len(tips)]
	return tip.In(lang), nil
}

var genericTips = []game.Localized{
	{
		EN: "Sleep on it. Any decision that can't wait a day is usually a trap.",
		HI: "एक रात सोचिए। जो फैसला एक दिन रुक नहीं सकता, वह अक्सर जाल होता है।",
		MR: "एक रात्र विचार करा. जो निर्णय एक दिवस थांबू शकत नाही, तो बहुधा सापळा असतो.",
	},
	{
		EN: "Ask what this costs you in a year, not in a month.",
		HI: "सोचिए इसकी कीमत साल भर में क्या होगी, सिर्फ महीने में नहीं।",
		MR: "याची किंमत महिन्यात नव्हे, वर्षभरात किती होईल याचा विचार करा.",
	},
}

var categoryTips = map[game.Category][]game.Localized{
	game.CategoryNeeds: {
		{
			EN: "Needs come before wants. Insurance and an emergency fund are the foundation everything else stands on.",
			HI: "ज़रूरतें पहले, चाहतें बाद में। बीमा और इमरजेंसी फंड वह नींव है जिस पर बाकी सब टिका है।",
			MR: "गरजा आधी, इच्छा नंतर. विमा आणि आपत्कालीन निधी हा पाया आहे.",
		},
		{
			EN: "Budget needs at roughly half your income. If they eat more, fix the structure, not the groceries.",
			HI: "ज़रूरतों पर आय का लगभग आधा ही जाए। ज़्यादा जा रहा है तो ढांचा बदलिए।",
			MR: "गरजांवर उत्पन्नाच्या निम्म्याहून जास्त जाऊ देऊ नका. जास्त जात असेल तर रचना बदला.",
		},
	},
	game.CategoryWants: {
		{
			EN: "The 48-hour rule kills most impulse buys. If you still want it in two days, budget for it.",
			HI: "48 घंटे का नियम ज़्यादातर बेकार खरीदारी रोक देता है। दो दिन बाद भी चाहिए तो बजट बनाइए।",
			MR: "48 तासांचा नियम बहुतेक आवेगी खरेदी थांबवतो. दोन दिवसांनीही हवे असेल तर बजेट करा.",
		},
		{
			EN: "An EMI turns a want into a twelve-month obligation. Depreciating assets deserve cash, not credit.",
			HI: "EMI एक चाहत को बारह महीने के बोझ में बदल देती है। घटती कीमत वाली चीज़ें नकद से लीजिए।",
			MR: "EMI इच्छेला बारा महिन्यांच्या ओझ्यात बदलते. किंमत घटणाऱ्या वस्तू रोखीनेच घ्या.",
		},
	},
	game.CategoryEmergency: {
		{
			EN: "This is exactly what the emergency fund is for. Spending it is not failure, it's the plan working.",
			HI: "इमरजेंसी फंड इसीलिए है। उसे खर्च करना असफलता नहीं, योजना का काम करना है।",
			MR: "आपत्कालीन निधी यासाठीच असतो. तो वापरणे अपयश नव्हे, योजना कामी येणे आहे.",
		},
		{
			EN: "In a crisis, cheap credit beats fast credit. Compare rates even when you're stressed.",
			HI: "संकट में सस्ता कर्ज़ तेज़ कर्ज़ से बेहतर है। तनाव में भी ब्याज दर ज़रूर तुलना करें।",
			MR: "संकटात स्वस्त कर्ज जलद कर्जापेक्षा चांगले. तणावातही व्याजदर तपासा.",
		},
	},
	game.CategoryInvestment: {
		{
			EN: "Time in the market beats timing the market. Start small, start now, automate it.",
			HI: "बाज़ार में समय बिताना, समय साधने से बेहतर है। छोटा शुरू कीजिए, अभी कीजिए, ऑटोमेट कीजिए।",
			MR: "बाजारात वेळ घालवणे हे मुहूर्त साधण्यापेक्षा चांगले. लहान सुरुवात करा, आत्ताच करा.",
		},
		{
			EN: "Never invest in what you can't explain to a friend in two sentences.",
			HI: "जो चीज़ दो वाक्यों में दोस्त को न समझा सकें, उसमें निवेश मत कीजिए।",
			MR: "जे दोन वाक्यांत मित्राला समजावता येत नाही, त्यात गुंतवणूक करू नका.",
		},
	},
	game.CategorySocial: {
		{
			EN: "You can honor the relationship without matching the spend. Set the budget before the occasion.",
			HI: "रिश्ता निभाने के लिए बराबर खर्च ज़रूरी नहीं। मौके से पहले बजट तय कीजिए।",
			MR: "नाते जपण्यासाठी तितकाच खर्च करावा लागत नाही. प्रसंगाआधी बजेट ठरवा.",
		},
		{
			EN: "Lending to family? Treat it as a gift in your head, or don't lend it at all.",
			HI: "परिवार को उधार दे रहे हैं? मन में उसे उपहार मानिए, वरना मत दीजिए।",
			MR: "कुटुंबाला उसने देताय? मनात ती भेट समजा, नाहीतर देऊच नका.",
		},
	},
	game.CategoryTrap: {
		{
			EN: "Guaranteed high returns are a guaranteed scam. Verify SEBI registration before any rupee moves.",
			HI: "गारंटीड ऊंचे रिटर्न पक्का घोटाला हैं। पैसा भेजने से पहले SEBI रजिस्ट्रेशन जांचिए।",
			MR: "हमखास जास्त परतावा म्हणजे हमखास फसवणूक. पैसे देण्याआधी SEBI नोंदणी तपासा.",
		},
		{
			EN: "Urgency is the scammer's best tool. Anyone rushing your money out of your account is not your friend.",
			HI: "जल्दबाज़ी ठग का सबसे बड़ा हथियार है। जो आपका पैसा जल्दी निकलवाए, वह दोस्त नहीं।",
			MR: "घाई हे फसवणुकीचे मुख्य हत्यार. जो पैसे घाईत काढायला लावतो, तो मित्र नव्हे.",
		},
	},
	game.CategoryNews: {
		{
			EN: "Headlines are priced in before you read them. Rebalance on schedule, not on news.",
			HI: "सुर्खियां पढ़ने से पहले ही भाव में शामिल होती हैं। खबर पर नहीं, तय समय पर पोर्टफोलियो बदलिए।",
			MR: "मथळे वाचण्याआधीच भावात आलेले असतात. बातमीवर नव्हे, ठरलेल्या वेळी पोर्टफोलिओ बदला.",
		},
	},
	game.CategoryQuiz: {
		{
			EN: "Getting this wrong costs nothing today. Getting it wrong with real money later will.",
			HI: "आज गलत जवाब मुफ्त है। असली पैसे के साथ गलती महंगी पड़ेगी।",
			MR: "आज चुकीचे उत्तर फुकट आहे. खऱ्या पैशांसोबत चूक महागात पडेल.",
		},
	},
}
