package domain

var Tables = []interface{}{
	&Category{},
	&Ingredient{},
	&Recipe{},
}
