package sqlitestore

import "encoding/json"

func encodeAttrDocs(docs map[string]string) (string, error) {
	if docs == nil {
		return "{}", nil
	}
	b, err := json.Marshal(docs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeAttrDocs(encoded string) (map[string]string, error) {
	if encoded == "" {
		return nil, nil
	}
	var docs map[string]string
	if err := json.Unmarshal([]byte(encoded), &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
