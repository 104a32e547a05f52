package tables

import (
	"github.com/JonMunkholm/dbpatch/internal/core"
	"github.com/JonMunkholm/dbpatch/internal/schema"
)

func init() {
	registerCreatureTemplate()
}

func i32(name string) schema.Column { return schema.Column{Name: name, Type: schema.TypeInt} }
func f32(name string) schema.Column { return schema.Column{Name: name, Type: schema.TypeFloat} }
func flag(name string) schema.Column { return schema.Column{Name: name, Type: schema.TypeBool} }

// CreatureTemplate is the TBC-era creature_template world table.
var CreatureTemplate = schema.MustNew("creature_template", []schema.Column{
	i32("Entry"),
	schema.Varchar("Name", 100),
	schema.Varchar("SubName", 100),
	schema.Varchar("IconName", 100),
	i32("MinLevel"), i32("MaxLevel"),
	i32("HeroicEntry"),
	i32("ModelId1"), i32("ModelId2"), i32("ModelId3"), i32("ModelId4"),
	i32("FactionAlliance"), i32("FactionHorde"),
	f32("Scale"),
	i32("Family"), i32("CreatureType"), i32("InhabitType"),
	flag("RegenerateStats"), flag("RacialLeader"),

	i32("NpcFlags"), i32("UnitFlags"), i32("DynamicFlags"), i32("ExtraFlags"), i32("CreatureTypeFlags"),
	f32("SpeedWalk"), f32("SpeedRun"),
	i32("UnitClass"), i32("Rank"), i32("Expansion"),
	f32("HealthMultiplier"), f32("PowerMultiplier"), f32("DamageMultiplier"),
	f32("DamageVariance"), f32("ArmorMultiplier"), f32("ExperienceMultiplier"),
	i32("MinLevelHealth"), i32("MaxLevelHealth"),

	i32("MinLevelMana"), i32("MaxLevelMana"),
	f32("MinMeleeDmg"), f32("MaxMeleeDmg"), f32("MinRangedDmg"), f32("MaxRangedDmg"),
	i32("Armor"), i32("MeleeAttackPower"), i32("RangedAttackPower"),
	i32("MeleeBaseAttackTime"), i32("RangedBaseAttackTime"),
	i32("DamageSchool"), i32("MinLootGold"), i32("MaxLootGold"),
	i32("LootId"), i32("PickpocketLootId"), i32("SkinningLootId"),
	i32("KillCredit1"), i32("KillCredit2"),
	i32("MechanicImmuneMask"),

	i32("ResistanceHoly"), i32("ResistanceFire"), i32("ResistanceNature"),
	i32("ResistanceFrost"), i32("ResistanceShadow"), i32("ResistanceArcane"),
	i32("PetSpellDataId"), i32("MovementType"),
	i32("TrainerType"), i32("TrainerSpell"), i32("TrainerClass"), i32("TrainerRace"), i32("TrainerTemplateId"),
	i32("VendorTemplateId"), i32("EquipmentTemplateId"), i32("GossipMenuId"),
	schema.Varchar("AIName", 64),
	schema.Varchar("ScriptName", 64),
}, "Entry")

func registerCreatureTemplate() {
	core.Register(core.TableDefinition{
		Schema: CreatureTemplate,
		Group:  "World",
		Label:  "Creatures",
	})
}
