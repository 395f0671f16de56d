package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var digits = "0123456789"

// GenerateEmployeeCodeFromChineseName 用姓名拼音加随机数字生成员工工号
func GenerateEmployeeCodeFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	code := ""

	for _, p := range pinyinArray {
		code += p[:1]
	}

	for i := 0; i < 4; i++ {
		code += string(digits[rand.Intn(len(digits))])
	}

	return code
}

var contractTypes = []domain.ContractType{
	domain.ContractRegular,
	domain.ContractDispatched,
	domain.ContractIntern,
}

func GenerateRandomContractType() domain.ContractType {
	return contractTypes[rand.Intn(len(contractTypes))]
}

// GenerateRandomSkills 为员工随机生成 1-3 项技能
func GenerateRandomSkills(skillIDs []int64) []domain.EmployeeSkill {
	count := rand.Intn(3) + 1
	if count > len(skillIDs) {
		count = len(skillIDs)
	}

	shuffled := make([]int64, len(skillIDs))
	copy(shuffled, skillIDs)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	skills := make([]domain.EmployeeSkill, 0, count)
	for _, skillID := range shuffled[:count] {
		skill := domain.EmployeeSkill{
			SkillID:   skillID,
			Level:     int32(rand.Intn(5) + 1),
			Certified: rand.Intn(2) == 0,
		}
		if skill.Certified && rand.Intn(3) == 0 {
			// 一部分证书带有效期
			until := time.Now().AddDate(0, rand.Intn(24)-6, 0)
			skill.CertifiedUntil = &until
		}
		skills = append(skills, skill)
	}

	return skills
}

func GenerateRandomLine() string {
	return fmt.Sprintf("产线-%c", 'A'+rand.Intn(4))
}
