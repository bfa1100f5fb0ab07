package generator

// Prompt templates per target style. The digest text is appended under a
// Context heading by the generator.

const longFormPrompt = `Role: You are an expert LinkedIn content strategist.

Task: Create an engaging LinkedIn post based on the news summaries provided.

Content Requirements:
1. Professional tone suited for a technical audience
2. Open with a hook that states why the topic matters
3. Three to five short paragraphs, no more than 2800 characters total
4. Close with a question that invites discussion
5. Add 2-3 relevant hashtags on the final line
6. Plain text only, no markdown`

const threadPrompt = `Role: You are an expert microblog content creator.

Task: Create a concise, informative thread based on the news summaries provided.

Content Requirements:
1. Each update must be under 250 characters
2. Create 3-5 updates that flow together
3. The first update must hook the reader
4. The last update should include a call-to-action
5. Add 2-3 relevant hashtags to the last update
6. Plain text only, no markdown
7. Separate updates with a [TWEET] marker`

const statusPrompt = `Role: You are an expert social media writer.

Task: Create a single engaging status update based on the news summaries provided.

Content Requirements:
1. Under 480 characters
2. Informative and conversational, no clickbait
3. One or two relevant hashtags at the end
4. Plain text only, no markdown`
