package mcpserver

// EntryFormatContract describes the canonical markdown source format that
// journal entries must follow to sync cleanly.
const EntryFormatContract = `# Journal Entry Format Contract

Every markdown file in the content directory MUST follow this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title         # OPTIONAL - derived from filename if absent
description: One-line summary       # OPTIONAL
tags:                               # OPTIONAL - YAML list
  - tag-one
publishDate: 2025-01-15             # OPTIONAL - derived from filename prefix if absent
published: true                     # OPTIONAL - defaults to false
featured: false                     # OPTIONAL
category: essays                    # OPTIONAL
---

Body text in standard Markdown.
` + "```" + `

## Rules

1. **Filenames** use the pattern ` + "`" + `YYYY-MM-DD-slug.md` + "`" + `. The date prefix
   becomes the publish date and the remainder becomes the slug unless the
   frontmatter overrides them.
2. **Slugs are unique** across the content directory. Two files resolving to
   the same slug fail the sync for both.
3. **Frontmatter values** containing colons, quotes, or other YAML-unsafe
   characters are tolerated; the sanitizer quotes them before parsing.
4. **Mermaid diagrams** go in fenced ` + "```" + `mermaid` + "```" + ` blocks and are rendered
   to images during sync.
5. **Math** uses LaTeX syntax: ` + "`" + `$...$` + "`" + ` inline, ` + "`" + `$$...$$` + "`" + ` display.
6. **Encoding** is UTF-8 with a trailing newline.
`
