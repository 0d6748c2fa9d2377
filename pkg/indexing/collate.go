package indexing

import (
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/adfharrison1/wqdb/pkg/domain"
)

// Type ranks, lowest first.
const (
	rankNull = iota
	rankFalse
	rankTrue
	rankNumber
	rankString
	rankArray
	rankObject
	rankUnknown
)

// Collators keep internal buffers and are not safe for concurrent use.
var collatorPool = sync.Pool{
	New: func() interface{} {
		return collate.New(language.Und)
	},
}

func rank(v interface{}) int {
	switch val := v.(type) {
	case nil:
		return rankNull
	case bool:
		if val {
			return rankTrue
		}
		return rankFalse
	case string:
		return rankString
	case []interface{}:
		return rankArray
	case map[string]interface{}, domain.Document:
		return rankObject
	}
	if _, ok := domain.ToFloat64(v); ok {
		return rankNumber
	}
	return rankUnknown
}

// Compare orders view keys: null < false < true < numbers < strings <
// arrays < objects. Strings use Unicode collation with a byte-wise tie
// break, arrays compare element by element, objects compare their sorted
// key/value pairs. It returns -1, 0 or 1.
func Compare(a, b interface{}) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return sign(ra - rb)
	}

	switch ra {
	case rankNumber:
		fa, _ := domain.ToFloat64(a)
		fb, _ := domain.ToFloat64(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case rankString:
		return compareStrings(a.(string), b.(string))
	case rankArray:
		return compareArrays(a.([]interface{}), b.([]interface{}))
	case rankObject:
		return compareObjects(asObject(a), asObject(b))
	}
	return 0
}

func compareStrings(a, b string) int {
	if a == b {
		return 0
	}
	c := collatorPool.Get().(*collate.Collator)
	res := c.CompareString(a, b)
	collatorPool.Put(c)
	if res != 0 {
		return res
	}
	return strings.Compare(a, b)
}

func compareArrays(a, b []interface{}) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return sign(len(a) - len(b))
}

func compareObjects(a, b map[string]interface{}) int {
	ka, kb := sortedKeys(a), sortedKeys(b)
	for i := 0; i < len(ka) && i < len(kb); i++ {
		if c := compareStrings(ka[i], kb[i]); c != 0 {
			return c
		}
		if c := Compare(a[ka[i]], b[kb[i]]); c != 0 {
			return c
		}
	}
	return sign(len(ka) - len(kb))
}

func asObject(v interface{}) map[string]interface{} {
	if doc, ok := v.(domain.Document); ok {
		return doc
	}
	return v.(map[string]interface{})
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
