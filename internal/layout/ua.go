package layout

// userAgentCSS is applied before every caller stylesheet.
const userAgentCSS = `
html, body, div, p, h1, h2, h3, h4, h5, h6, ul, ol, li, dl, dt, dd,
blockquote, pre, table, thead, tbody, tfoot, tr, td, th, caption,
header, footer, section, article, aside, nav, main, figure, figcaption,
hr, address, details, summary, form, fieldset { display: block }
li { display: list-item }
head, script, style, title, meta, link, template { display: none }

body { margin: 8px }
p { margin: 1em 0 }
h1 { font-size: 2em; margin: 0.67em 0; font-weight: bold }
h2 { font-size: 1.5em; margin: 0.83em 0; font-weight: bold }
h3 { font-size: 1.17em; margin: 1em 0; font-weight: bold }
h4 { margin: 1.33em 0; font-weight: bold }
h5 { font-size: 0.83em; margin: 1.67em 0; font-weight: bold }
h6 { font-size: 0.67em; margin: 2.33em 0; font-weight: bold }
ul, ol { margin: 1em 0; padding-left: 40px }
li ul, li ol { margin: 0 }
dl { margin: 1em 0 }
dd { margin-left: 40px }
blockquote, figure { margin: 1em 40px }
pre { margin: 1em 0; white-space: pre; font-family: monospace }
code, kbd, samp, tt { font-family: monospace }
b, strong, th, dt { font-weight: bold }
i, em, cite, var, dfn { font-style: italic }
mark { background-color: yellow }
small { font-size: smaller }
hr { margin: 0.5em 0; border-top: 1px solid gray }
td, th { padding: 1px 4px }

.pageNumber { content: counter(page) }
.totalPages { content: counter(pages) }
`
