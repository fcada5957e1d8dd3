package mcpserver

// QueryFormat describes how package queries are written, for LLM consumers
// of the registry tools.
const QueryFormat = `# Quarry Package Query Format

## Package names

A package is named ` + "`" + `scope/name` + "`" + `. Both parts are 3 to 32 characters of
lowercase ASCII letters, digits and ` + "`" + `_` + "`" + `, and may not start or end with ` + "`" + `_` + "`" + `.

## Version selector

- ` + "`" + `latest` + "`" + ` (any case): the highest published version by semantic version
  precedence. ` + "`" + `1.10.0` + "`" + ` is newer than ` + "`" + `1.9.0` + "`" + `, and ` + "`" + `1.0.0-beta.1` + "`" + ` is older
  than ` + "`" + `1.0.0` + "`" + `.
- An exact version such as ` + "`" + `1.2.3` + "`" + ` or ` + "`" + `2.0.0-rc.1` + "`" + `. Ranges are not accepted.

## Target selector

- ` + "`" + `any` + "`" + ` (any case): the first published target in the order
  roblox, lune, luau.
- A target kind: ` + "`" + `roblox` + "`" + `, ` + "`" + `lune` + "`" + ` or ` + "`" + `luau` + "`" + ` (lowercase, exact). The lookup
  never substitutes a compatible kind.

## Documentation pages

Pass ` + "`" + `doc` + "`" + ` with the exact page name from the ` + "`" + `docs` + "`" + ` tree of the metadata.
When a name appears more than once, the page found last in the tree wins
and nested categories are searched before their earlier siblings.

## Results

Metadata lists every target published for the resolved version, ordered
by kind, with whether each exports a library or a binary. Fields without
a value (description, license, authors, repository) are omitted.
`
