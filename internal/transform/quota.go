package transform

import (
	"encoding/json"

	godbf "github.com/recruitdata/go-dbf"
)

// QuotaInfo is the fixed-key quota record. Field order is the serialized
// key order.
type QuotaInfo struct {
	CFF bool `json:"CFF"`
	EM  bool `json:"EM"`
	PHC bool `json:"PHC"`
}

// DeriveQuota computes the quota flags from the freedom-fighter, tribal and
// physically-challenged status codes.
func DeriveQuota(ff, tribal, phc int64) QuotaInfo {
	return QuotaInfo{
		CFF: ff == 2 || ff == 3,
		EM:  tribal == 1,
		PHC: phc == 1,
	}
}

func (q QuotaInfo) Any() bool { return q.CFF || q.EM || q.PHC }

func (q QuotaInfo) JSON() string {
	b, _ := json.Marshal(q) // three bools cannot fail
	return string(b)
}

// Quota derives has_quota and quota_info. Absent or non-numeric codes count
// as 0.
type Quota struct {
	FF        string
	Tribal    string
	PHC       string
	HasQuota  string
	QuotaInfo string
}

func (Quota) Name() string { return "quota" }

func (q Quota) Apply(row godbf.Row) {
	info := DeriveQuota(row.Get(q.FF).ToInt(), row.Get(q.Tribal).ToInt(), row.Get(q.PHC).ToInt())
	row[q.HasQuota] = godbf.BoolValue(info.Any())
	row[q.QuotaInfo] = godbf.TextValue(info.JSON())
}
