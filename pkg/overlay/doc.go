/*
Package overlay holds the configuration templates and the two overlay
strategies the assembler combines.

# Strategies

Structured overlays are key/value trees merged key by key into a Document;
a later overlay overwrites an earlier one on collision and nested maps merge
recursively. Literal overlays are raw text appended after the serialized
tree and never parsed. The asymmetry is intentional: a user-supplied literal
can repeat a key set by a structured overlay, and consumers resolve it with
last-occurrence-wins parsing (see package settings).

# Templates

The Store reads base templates and role overlays from an fs.FS. The default
store is embedded in the binary; operators can point at a directory with the
same layout. A missing base template or a file that is not a YAML mapping is
reported as a *TemplateError.
*/
package overlay
