package stage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"draftforge.app/engine/common/llm"
	"draftforge.app/engine/internal/event"
	"draftforge.app/engine/internal/graph"
	"draftforge.app/engine/internal/model"
)

const campaignSystemPrompt = `You repurpose a finished blog post into one specific marketing asset.
Write only the asset requested, in its native format and voice, ready to
publish. Keep the post's tone and do not invent claims the post does not make.`

type campaignAsset struct {
	Content string `json:"content" jsonschema:"required,description=The finished asset text"`
}

var campaignAssetSchema = llm.GenerateSchema[campaignAsset]()

type assetDef struct {
	name  string
	brief string
	set   func(c *model.CampaignAssets, text string)
}

var campaignAssets = []assetDef{
	{"linkedin_post", "a LinkedIn post (200-300 words, professional, with a hook and a call to action)",
		func(c *model.CampaignAssets, t string) { c.LinkedInPost = t }},
	{"youtube_script", "a YouTube video script (3-5 minutes, with intro hook, chaptered talking points and outro)",
		func(c *model.CampaignAssets, t string) { c.YouTubeScript = t }},
	{"facebook_post", "a Facebook post (conversational, under 150 words, with an engagement question)",
		func(c *model.CampaignAssets, t string) { c.FacebookPost = t }},
	{"email_sequence", "a 3-email nurture sequence (subject lines plus bodies, each under 200 words)",
		func(c *model.CampaignAssets, t string) { c.EmailSequence = t }},
	{"twitter_thread", "a Twitter/X thread (6-10 numbered tweets, each under 280 characters)",
		func(c *model.CampaignAssets, t string) { c.TwitterThread = t }},
	{"landing_page", "landing page copy (headline, subheadline, 3 benefit blocks, call to action)",
		func(c *model.CampaignAssets, t string) { c.LandingPage = t }},
}

// CampaignStage derives the six marketing assets from the finished post,
// one model call per asset, all in flight at once. Missing assets leave
// their field empty; the stage errors only when every asset failed.
type CampaignStage struct {
	client  llm.Client
	emitter *event.Emitter
}

func NewCampaignStage(client llm.Client, emitter *event.Emitter) *CampaignStage {
	return &CampaignStage{client: client, emitter: emitter}
}

func (st *CampaignStage) Run(ctx context.Context, s graph.State) (graph.Update, error) {
	st.emitter.Emit(ctx, event.TypeStageStarted, Campaign, "generating campaign assets", nil)

	post := truncate(s.Content, maxAuditRunes)

	texts := make([]string, len(campaignAssets))
	errs := make([]error, len(campaignAssets))
	var wg sync.WaitGroup
	for i, def := range campaignAssets {
		wg.Add(1)
		go func(idx int, def assetDef) {
			defer wg.Done()
			texts[idx], errs[idx] = st.generate(ctx, def, post)
		}(i, def)
	}
	wg.Wait()

	var out model.CampaignAssets
	produced := 0
	var failed []string
	for i, def := range campaignAssets {
		if errs[i] != nil {
			failed = append(failed, def.name)
			continue
		}
		def.set(&out, texts[i])
		produced++
	}

	if produced == 0 {
		return graph.Update{}, fmt.Errorf("all campaign assets failed: %s", strings.Join(failed, ", "))
	}

	st.emitter.Emit(ctx, event.TypeStageCompleted, Campaign, fmt.Sprintf("generated %d of %d assets", produced, len(campaignAssets)), map[string]any{
		"failed": failed,
	})

	update := graph.Update{Campaign: &out}
	if len(failed) > 0 {
		update.Errors = []string{fmt.Sprintf("campaign assets failed: %s", strings.Join(failed, ", "))}
	}
	return update, nil
}

func (st *CampaignStage) generate(ctx context.Context, def assetDef, post string) (string, error) {
	var asset campaignAsset
	_, err := st.client.Chat(ctx, llm.Request{
		SystemPrompt: campaignSystemPrompt,
		UserPrompt:   fmt.Sprintf("Asset to produce: %s\n\nBlog post:\n%s", def.brief, post),
		SchemaName:   "campaign_asset",
		Schema:       campaignAssetSchema,
		MaxTokens:    2048,
		Temperature:  llm.Temp(0.7),
	}, &asset)
	if err != nil {
		return "", fmt.Errorf("generating %s: %w", def.name, err)
	}
	return asset.Content, nil
}
