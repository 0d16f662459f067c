package llm

import (
	"encoding/json"
	"fmt"

	"github.com/srishtiii28/alphascan/internal/domain"
)

// BuildAlphaPrompt creates the structured-extraction prompt for a closed
// window of chat messages.
func BuildAlphaPrompt(events []domain.MessageEvent) string {
	payload, _ := json.Marshal(events)

	return fmt.Sprintf(`You are an expert cryptocurrency analyst with deep knowledge of tokens, DeFi protocols, and market trends. Analyze the following group chat messages and:

1. Identify any cryptocurrency tokens being discussed, including:
   - Direct token mentions (e.g. BTC, ETH)
   - Indirect references (e.g. "the blue chip", "Vitalik's creation")
   - Related protocol/platform tokens

2. For each identified token:
   - Extract relevant message snippets showing the discussion context
   - Determine overall sentiment (positive/negative) based on:
     * Price discussion
     * Project developments
     * Market outlook
     * User reactions

3. Messages flagged "overlap" carry over from the previous batch; only take them into account if they are relevant to the non-overlap messages.

4. Return results in this JSON format:
[
    {
        "token": "token_symbol",
        "texts": ["relevant message 1", "relevant message 2"],
        "sentiment": "positive/negative",
        "confidence": 0.8
    },
    ...
]

Return empty list if no tokens detected.

Messages to analyze: %s`, payload)
}

// BuildPostsPrompt creates the prompt that generates ~10 short social posts
// about a token with the given overall sentiment ("good" or "bad").
func BuildPostsPrompt(token, sentiment string) string {
	return fmt.Sprintf(`You are an expert crypto token tweet generator. You are given a token name and you need to generate 10 tweets about the token. Sentiment of the tweets should be %s.
The tweets should be short and to the point, max 280 characters each.
The tweets should be engaging and interesting, and not be promotional.
Some tweets should be weird and funny.
One or two tweets can be opposite of the overall sentiment, to make it more interesting, but not more than 2.
All tweets should be about the token itself, not the project behind it.
Make sure all the tweets are in English or Hindi.
Return the tweets in this JSON format:
{
    "tweets": [
        "tweet 1",
        "tweet 2",
        ...
    ]
}
Token name: %s`, sentiment, token)
}

// BuildSentimentPrompt creates the prompt that re-derives a binary sentiment
// from a list of posts about a token.
func BuildSentimentPrompt(posts []string, token string) string {
	payload, _ := json.Marshal(posts)

	return fmt.Sprintf(`You are an expert cryptocurrency analyst with deep experience in sentiment analysis and market psychology. You are given a list of tweets discussing a specific token.

Your task is to carefully analyze these tweets to determine the overall market sentiment. Consider:
- The tone and language used (sarcasm, enthusiasm, fear, etc.)
- Any specific criticisms or praise of the token
- References to price movement, trading volume, or market dynamics
- The credibility and context of the statements
- The ratio of positive to negative comments
- The intensity of the sentiment expressed

Weigh all factors to make a binary sentiment determination. Be especially alert for:
- Coordinated pumping or FUD campaigns
- Overly emotional or irrational statements
- Technical analysis claims without evidence
- Market manipulation attempts

Return your analysis as a JSON with this exact format:
{
    "sentiment": "positive/negative"
}

Tweets to analyze: %s
Token being discussed: %s`, payload, token)
}
