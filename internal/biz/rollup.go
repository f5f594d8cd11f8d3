package biz

import "sort"

// performanceKey 汇总维度：主办方 + 演出
type performanceKey struct {
	HostBizName      string
	PerformanceTitle string
}

// rollup 按演出累加金额，保持键的确定顺序
type rollup struct {
	sums map[performanceKey]*Amounts
}

func newRollup() *rollup {
	return &rollup{sums: make(map[performanceKey]*Amounts)}
}

func (r *rollup) add(hostBizName, performanceTitle string, a Amounts) {
	k := performanceKey{HostBizName: hostBizName, PerformanceTitle: performanceTitle}
	sum, ok := r.sums[k]
	if !ok {
		sum = &Amounts{}
		r.sums[k] = sum
	}
	sum.Add(a)
}

// each 按 (主办方, 演出) 升序遍历
func (r *rollup) each(fn func(k performanceKey, a Amounts)) {
	keys := make([]performanceKey, 0, len(r.sums))
	for k := range r.sums {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].HostBizName != keys[j].HostBizName {
			return keys[i].HostBizName < keys[j].HostBizName
		}
		return keys[i].PerformanceTitle < keys[j].PerformanceTitle
	})
	for _, k := range keys {
		fn(k, *r.sums[k])
	}
}
