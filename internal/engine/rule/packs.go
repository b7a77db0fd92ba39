package rule

// Builtin packs cover the pairs the platform ships with. Installations add
// site-specific packs through the packs_dir setting.
var builtinPacks = []string{
	packPythonToGo,
	packCToGo,
	packPython2To3,
}

const packPythonToGo = `
name: python-to-go-core
source_language: python311
target_language: go119
rules:
  - name: def-to-func
    match: '\bdef\s+(?P<name>\w+)\((?P<params>[^)]*)\):'
    replace: 'func ${name}(${params}) {'
    confidence: 0.6
  - name: print-call
    match: '\bprint\((?P<args>[^\n]*)\)'
    replace: 'fmt.Println(${args})'
    confidence: 0.85
  - name: elif-chain
    match: '\belif\b'
    replace: '} else if'
    confidence: 0.7
  - name: none-literal
    match: '\bNone\b'
    replace: 'nil'
    confidence: 0.9
  - name: true-literal
    match: '\bTrue\b'
    replace: 'true'
    confidence: 0.95
  - name: false-literal
    match: '\bFalse\b'
    replace: 'false'
    confidence: 0.95
  - name: str-call
    match: '\bstr\((?P<arg>[^)]+)\)'
    replace: 'fmt.Sprint(${arg})'
    confidence: 0.8
`

const packCToGo = `
name: c-to-go-core
source_language: c17
target_language: go119
rules:
  - name: include-drop
    match: '(?m)^#include[^\n]*\n?'
    replace: ''
    confidence: 0.75
  - name: null-literal
    match: '\bNULL\b'
    replace: 'nil'
    confidence: 0.9
  - name: printf-call
    match: '\bprintf\('
    replace: 'fmt.Printf('
    confidence: 0.8
  - name: arrow-deref
    match: '(?P<recv>\w+)->(?P<field>\w+)'
    replace: '${recv}.${field}'
    confidence: 0.85
`

// Legacy Python 2 sources are modernized rather than cross-translated; this
// pack handles the mechanical part of that.
const packPython2To3 = `
name: python2-modernize
source_language: python2
target_language: python311
rules:
  - name: print-statement
    match: '(?m)^(?P<indent>[ \t]*)print\s+(?P<args>[^(\n][^\n]*)$'
    replace: '${indent}print(${args})'
    confidence: 0.9
  - name: xrange-call
    match: '\bxrange\('
    replace: 'range('
    confidence: 0.95
  - name: iteritems-call
    match: '\.iteritems\(\)'
    replace: '.items()'
    confidence: 0.95
  - name: has-key
    match: '(?P<dict>\w+)\.has_key\((?P<key>[^)]+)\)'
    replace: '${key} in ${dict}'
    confidence: 0.85
  - name: unicode-builtin
    match: '\bunicode\('
    replace: 'str('
    confidence: 0.9
`
