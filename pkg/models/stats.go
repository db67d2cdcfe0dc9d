package models

import "encoding/json"

// Progress compares what was exported with the totals the forum announces.
type Progress struct {
	Exported int `json:"exported"`
	Total    int `json:"total"`
}

type Stats struct {
	Complete bool     `json:"complete"`
	Users    Progress `json:"users"`
	Groups   int      `json:"groups"`
	Forums   int      `json:"forums"`
	Topics   Progress `json:"topics"`
	Posts    Progress `json:"posts"`
	Smilies  int      `json:"smilies"`
	// number of users per email trust level
	Trust [4]int `json:"trust"`
}

func (s *Stats) String() string {
	b, _ := json.Marshal(s)
	return string(b)
}
