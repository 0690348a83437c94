package template

// DefaultTemplate is the embedded default report template.
// It uses {{variable}} placeholders for dynamic content injection.
const DefaultTemplate = `# {{title}}
{{date}}

## {{heading}}

| | |
|---|---|
| **{{crop_label}}** | {{crop}} |
| **{{fertilizer_label}}** | {{fertilizer}} |

{{inputs}}
{{prices}}`
