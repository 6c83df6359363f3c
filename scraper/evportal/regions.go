package evportal

import "ev-subsidy-scraper/models"

// StaticRegions is the portal's region list as of the 2025 subsidy year. It is
// used when the live list cannot be fetched and to fill in region categories.
var StaticRegions = []models.Region{
	// 특별시/광역시
	{Code: "1100", Name: "서울특별시", Category: "특별시"},
	{Code: "2600", Name: "부산광역시", Category: "광역시"},
	{Code: "2700", Name: "대구광역시", Category: "광역시"},
	{Code: "2800", Name: "인천광역시", Category: "광역시"},
	{Code: "2900", Name: "광주광역시", Category: "광역시"},
	{Code: "3000", Name: "대전광역시", Category: "광역시"},
	{Code: "3100", Name: "울산광역시", Category: "광역시"},
	{Code: "3611", Name: "세종특별자치시", Category: "특별자치시"},

	// 경기도
	{Code: "4111", Name: "수원시", Category: "경기도"},
	{Code: "4113", Name: "성남시", Category: "경기도"},
	{Code: "4115", Name: "의정부시", Category: "경기도"},
	{Code: "4117", Name: "안양시", Category: "경기도"},
	{Code: "4119", Name: "부천시", Category: "경기도"},
	{Code: "4121", Name: "광명시", Category: "경기도"},
	{Code: "4122", Name: "평택시", Category: "경기도"},
	{Code: "4125", Name: "동두천시", Category: "경기도"},
	{Code: "4127", Name: "안산시", Category: "경기도"},
	{Code: "4128", Name: "고양시", Category: "경기도"},
	{Code: "4129", Name: "과천시", Category: "경기도"},
	{Code: "4131", Name: "구리시", Category: "경기도"},
	{Code: "4136", Name: "남양주시", Category: "경기도"},
	{Code: "4137", Name: "오산시", Category: "경기도"},
	{Code: "4139", Name: "시흥시", Category: "경기도"},
	{Code: "4141", Name: "군포시", Category: "경기도"},
	{Code: "4143", Name: "의왕시", Category: "경기도"},
	{Code: "4145", Name: "하남시", Category: "경기도"},
	{Code: "4146", Name: "용인시", Category: "경기도"},
	{Code: "4148", Name: "파주시", Category: "경기도"},
	{Code: "4150", Name: "이천시", Category: "경기도"},
	{Code: "4155", Name: "안성시", Category: "경기도"},
	{Code: "4157", Name: "김포시", Category: "경기도"},
	{Code: "4159", Name: "화성시", Category: "경기도"},
	{Code: "4161", Name: "광주시", Category: "경기도"},
	{Code: "4163", Name: "양주시", Category: "경기도"},
	{Code: "4165", Name: "포천시", Category: "경기도"},
	{Code: "4167", Name: "여주시", Category: "경기도"},
	{Code: "4180", Name: "연천군", Category: "경기도"},
	{Code: "4182", Name: "가평군", Category: "경기도"},
	{Code: "4183", Name: "양평군", Category: "경기도"},

	// 강원도
	{Code: "4211", Name: "춘천시", Category: "강원도"},
	{Code: "4213", Name: "원주시", Category: "강원도"},
	{Code: "4215", Name: "강릉시", Category: "강원도"},
	{Code: "4217", Name: "동해시", Category: "강원도"},
	{Code: "4219", Name: "태백시", Category: "강원도"},
	{Code: "4221", Name: "속초시", Category: "강원도"},
	{Code: "4223", Name: "삼척시", Category: "강원도"},
	{Code: "4272", Name: "홍천군", Category: "강원도"},
	{Code: "4273", Name: "횡성군", Category: "강원도"},
	{Code: "4275", Name: "영월군", Category: "강원도"},
	{Code: "4276", Name: "평창군", Category: "강원도"},
	{Code: "4277", Name: "정선군", Category: "강원도"},
	{Code: "4278", Name: "철원군", Category: "강원도"},
	{Code: "4279", Name: "화천군", Category: "강원도"},
	{Code: "4280", Name: "양구군", Category: "강원도"},
	{Code: "4281", Name: "인제군", Category: "강원도"},
	{Code: "4282", Name: "고성군", Category: "강원도"},
	{Code: "4283", Name: "양양군", Category: "강원도"},

	// 충청북도
	{Code: "4311", Name: "청주시", Category: "충청북도"},
	{Code: "4313", Name: "충주시", Category: "충청북도"},
	{Code: "4315", Name: "제천시", Category: "충청북도"},
	{Code: "4372", Name: "보은군", Category: "충청북도"},
	{Code: "4373", Name: "옥천군", Category: "충청북도"},
	{Code: "43745", Name: "증평군", Category: "충청북도"},
	{Code: "4374", Name: "영동군", Category: "충청북도"},
	{Code: "4375", Name: "진천군", Category: "충청북도"},
	{Code: "4376", Name: "괴산군", Category: "충청북도"},
	{Code: "4377", Name: "음성군", Category: "충청북도"},
	{Code: "4380", Name: "단양군", Category: "충청북도"},

	// 충청남도
	{Code: "4413", Name: "천안시", Category: "충청남도"},
	{Code: "4415", Name: "공주시", Category: "충청남도"},
	{Code: "4418", Name: "보령시", Category: "충청남도"},
	{Code: "4420", Name: "아산시", Category: "충청남도"},
	{Code: "4421", Name: "서산시", Category: "충청남도"},
	{Code: "4423", Name: "논산시", Category: "충청남도"},
	{Code: "4425", Name: "계룡시", Category: "충청남도"},
	{Code: "4427", Name: "당진시", Category: "충청남도"},
	{Code: "4471", Name: "금산군", Category: "충청남도"},
	{Code: "4476", Name: "부여군", Category: "충청남도"},
	{Code: "4477", Name: "서천군", Category: "충청남도"},
	{Code: "4479", Name: "청양군", Category: "충청남도"},
	{Code: "4480", Name: "홍성군", Category: "충청남도"},
	{Code: "4481", Name: "예산군", Category: "충청남도"},
	{Code: "44825", Name: "태안군", Category: "충청남도"},

	// 전라북도
	{Code: "4511", Name: "전주시", Category: "전라북도"},
	{Code: "4513", Name: "군산시", Category: "전라북도"},
	{Code: "4514", Name: "익산시", Category: "전라북도"},
	{Code: "4518", Name: "정읍시", Category: "전라북도"},
	{Code: "4519", Name: "남원시", Category: "전라북도"},
	{Code: "4521", Name: "김제시", Category: "전라북도"},
	{Code: "4571", Name: "완주군", Category: "전라북도"},
	{Code: "4572", Name: "진안군", Category: "전라북도"},
	{Code: "4573", Name: "무주군", Category: "전라북도"},
	{Code: "4574", Name: "장수군", Category: "전라북도"},
	{Code: "4575", Name: "임실군", Category: "전라북도"},
	{Code: "4577", Name: "순창군", Category: "전라북도"},
	{Code: "4579", Name: "고창군", Category: "전라북도"},
	{Code: "4580", Name: "부안군", Category: "전라북도"},

	// 전라남도
	{Code: "4611", Name: "목포시", Category: "전라남도"},
	{Code: "4613", Name: "여수시", Category: "전라남도"},
	{Code: "4615", Name: "순천시", Category: "전라남도"},
	{Code: "4617", Name: "나주시", Category: "전라남도"},
	{Code: "4623", Name: "광양시", Category: "전라남도"},
	{Code: "4671", Name: "담양군", Category: "전라남도"},
	{Code: "4672", Name: "곡성군", Category: "전라남도"},
	{Code: "4673", Name: "구례군", Category: "전라남도"},
	{Code: "4677", Name: "고흥군", Category: "전라남도"},
	{Code: "4678", Name: "보성군", Category: "전라남도"},
	{Code: "4679", Name: "화순군", Category: "전라남도"},
	{Code: "4680", Name: "장흥군", Category: "전라남도"},
	{Code: "4681", Name: "강진군", Category: "전라남도"},
	{Code: "4682", Name: "해남군", Category: "전라남도"},
	{Code: "4683", Name: "영암군", Category: "전라남도"},
	{Code: "4684", Name: "무안군", Category: "전라남도"},
	{Code: "4686", Name: "함평군", Category: "전라남도"},
	{Code: "4687", Name: "영광군", Category: "전라남도"},
	{Code: "4688", Name: "장성군", Category: "전라남도"},
	{Code: "4689", Name: "완도군", Category: "전라남도"},
	{Code: "4690", Name: "진도군", Category: "전라남도"},
	{Code: "4691", Name: "신안군", Category: "전라남도"},

	// 경상북도
	{Code: "4711", Name: "포항시", Category: "경상북도"},
	{Code: "4713", Name: "경주시", Category: "경상북도"},
	{Code: "4715", Name: "김천시", Category: "경상북도"},
	{Code: "4717", Name: "안동시", Category: "경상북도"},
	{Code: "4719", Name: "구미시", Category: "경상북도"},
	{Code: "4721", Name: "영주시", Category: "경상북도"},
	{Code: "4723", Name: "영천시", Category: "경상북도"},
	{Code: "4725", Name: "상주시", Category: "경상북도"},
	{Code: "4728", Name: "문경시", Category: "경상북도"},
	{Code: "4729", Name: "경산시", Category: "경상북도"},
	{Code: "4773", Name: "의성군", Category: "경상북도"},
	{Code: "4775", Name: "청송군", Category: "경상북도"},
	{Code: "4776", Name: "영양군", Category: "경상북도"},
	{Code: "4777", Name: "영덕군", Category: "경상북도"},
	{Code: "4782", Name: "청도군", Category: "경상북도"},
	{Code: "4783", Name: "고령군", Category: "경상북도"},
	{Code: "4784", Name: "성주군", Category: "경상북도"},
	{Code: "4785", Name: "칠곡군", Category: "경상북도"},
	{Code: "4790", Name: "예천군", Category: "경상북도"},
	{Code: "4792", Name: "봉화군", Category: "경상북도"},
	{Code: "4793", Name: "울진군", Category: "경상북도"},
	{Code: "4794", Name: "울릉군", Category: "경상북도"},

	// 경상남도
	{Code: "4812", Name: "창원시", Category: "경상남도"},
	{Code: "4817", Name: "진주시", Category: "경상남도"},
	{Code: "4822", Name: "통영시", Category: "경상남도"},
	{Code: "4824", Name: "사천시", Category: "경상남도"},
	{Code: "4825", Name: "김해시", Category: "경상남도"},
	{Code: "4827", Name: "밀양시", Category: "경상남도"},
	{Code: "4831", Name: "거제시", Category: "경상남도"},
	{Code: "4833", Name: "양산시", Category: "경상남도"},
	{Code: "4872", Name: "의령군", Category: "경상남도"},
	{Code: "4873", Name: "함안군", Category: "경상남도"},
	{Code: "4874", Name: "창녕군", Category: "경상남도"},
	{Code: "4882", Name: "고성군", Category: "경상남도"},
	{Code: "4884", Name: "남해군", Category: "경상남도"},
	{Code: "4885", Name: "하동군", Category: "경상남도"},
	{Code: "4886", Name: "산청군", Category: "경상남도"},
	{Code: "4887", Name: "함양군", Category: "경상남도"},
	{Code: "4888", Name: "거창군", Category: "경상남도"},
	{Code: "4889", Name: "합천군", Category: "경상남도"},

	// 제주특별자치도
	{Code: "5000", Name: "제주특별자치도", Category: "특별자치도"},
}

// CategoryOrder ranks region categories for CSV output; unknown categories sort last
var CategoryOrder = map[string]int{
	"특별시":   1,
	"경기도":   2,
	"광역시":   3,
	"특별자치시": 4,
	"강원도":   5,
	"충청북도":  6,
	"충청남도":  7,
	"전라북도":  8,
	"전라남도":  9,
	"경상북도":  10,
	"경상남도":  11,
	"특별자치도": 12,
	"기타":    13,
}

// CategoryRank returns the sort rank of a category
func CategoryRank(category string) int {
	if rank, ok := CategoryOrder[category]; ok {
		return rank
	}
	return len(CategoryOrder) + 1
}

// LookupRegion finds a static region by portal code
func LookupRegion(code string) (models.Region, bool) {
	for _, r := range StaticRegions {
		if r.Code == code {
			return r, true
		}
	}
	return models.Region{}, false
}
