package scanner

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/happyvertical/smrt-sub009/internal/manifest"
	"github.com/happyvertical/smrt-sub009/internal/projection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Scanner:
// - A decorated class with literal initializers becomes a definition whose
//   schema matches the expected CREATE TABLE statement
// - Results are ordered by path and each input gets exactly one result
// - A file with a syntax error yields a ScanError; other files still scan
// - Collection collisions across files fail assembly without a manifest
// - Rescanning unchanged input is idempotent and served from the cache
// - Inherited members are merged parent-first through relative imports
// - Recognition is transitive with FollowImports and direct without it
// - Inheritance cycles and unresolved imports warn instead of failing
// - Custom base classes and decorator names are honored
// - Progress callbacks see every input file
// - A cancelled context aborts the scan

const productSource = `import { smrt } from '@smrt/core';

@smrt()
class Product {
  name = '';
  price = 0;
  inStock = true;
  tags: string[] = [];
}
`

func TestScan_ProductExample(t *testing.T) {
	t.Parallel()

	report := scanSources(t, map[string]string{"product.ts": productSource})
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)

	def := mustObject(t, report.Manifest, "Product")
	assert.Equal(t, "Product", def.Name)
	assert.Equal(t, "products", def.Collection)
	assert.Equal(t, []string{"name", "price", "inStock", "tags"}, def.FieldNames())

	assert.Equal(t, manifest.FieldDefinition{Type: manifest.FieldText, Default: ""}, mustField(t, def, "name"))
	assert.Equal(t, manifest.FieldDefinition{Type: manifest.FieldInteger, Default: int64(0)}, mustField(t, def, "price"))
	assert.Equal(t, manifest.FieldDefinition{Type: manifest.FieldBoolean, Default: true}, mustField(t, def, "inStock"))
	assert.Equal(t, manifest.FieldDefinition{Type: manifest.FieldJSON, Default: []any{}}, mustField(t, def, "tags"))

	assert.True(t, def.DecoratorConfig.API.Enabled)
	assert.True(t, def.DecoratorConfig.CLI.Enabled)
	assert.True(t, def.DecoratorConfig.MCP.Enabled)
	assert.Empty(t, def.Tools)

	stmt, err := projection.CreateTable(def, report.Manifest, projection.DialectSQLite)
	require.NoError(t, err)
	assert.Equal(t,
		"CREATE TABLE IF NOT EXISTS products (id TEXT PRIMARY KEY, slug TEXT NOT NULL, context TEXT NOT NULL DEFAULT '', name TEXT, price INTEGER, in_stock INTEGER, tags TEXT, UNIQUE(slug, context));",
		stmt)
}

func TestScan_ResultsPerFile(t *testing.T) {
	t.Parallel()

	_, paths := writeSources(t, map[string]string{
		"b.ts":     `@smrt() export class Beta { x = 1; }`,
		"a.ts":     `@smrt() export class Alpha { y = 'a'; } @smrt() export class Gamma { z = true; }`,
		"plain.ts": `export class NotSmart { q = 1; }`,
	})

	s := newTestScanner(t, DefaultScanOptions())
	// Duplicates and unclean paths collapse to one result per file.
	input := append([]string{paths[1] + "/../" + filepath.Base(paths[1])}, paths...)
	results, err := s.ScanFiles(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, paths[0], results[0].FilePath)
	require.Len(t, results[0].Objects, 2)
	assert.Equal(t, "Alpha", results[0].Objects[0].ClassName)
	assert.Equal(t, "Gamma", results[0].Objects[1].ClassName)

	assert.Equal(t, "Beta", results[1].Objects[0].ClassName)

	assert.NotNil(t, results[2].Objects)
	assert.Empty(t, results[2].Objects)
}

func TestScan_SyntaxErrorIsPerFile(t *testing.T) {
	t.Parallel()

	_, paths := writeSources(t, map[string]string{
		"broken.ts": "@smrt()\nclass Broken {\n  name = ;\n",
		"good.ts":   `@smrt() export class Good { title = ''; }`,
	})

	report, err := newTestScanner(t, DefaultScanOptions()).Scan(context.Background(), paths, "shop")
	require.NoError(t, err)

	require.Len(t, report.Errors, 1)
	assert.Equal(t, paths[0], report.Errors[0].FilePath)
	assert.Greater(t, report.Errors[0].Line, 0)

	assert.Equal(t, []string{"Good"}, report.Manifest.ClassNames())
	assert.Equal(t, "shop", report.Manifest.PackageName)
	assert.Equal(t, 1, report.Stats.Errors)
	assert.Equal(t, 2, report.Stats.Files)
	assert.Equal(t, 1, report.Stats.Objects)
}

func TestScan_MissingFile(t *testing.T) {
	t.Parallel()

	dir, paths := writeSources(t, map[string]string{"ok.ts": `@smrt() class Ok { a = 1; }`})
	missing := filepath.Join(dir, "gone.ts")

	report, err := newTestScanner(t, DefaultScanOptions()).Scan(context.Background(), append(paths, missing), "")
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, missing, report.Errors[0].FilePath)
	assert.Contains(t, report.Errors[0].Message, "failed to read file")
	assert.Equal(t, []string{"Ok"}, report.Manifest.ClassNames())
}

func TestScan_CollectionCollision(t *testing.T) {
	t.Parallel()

	_, paths := writeSources(t, map[string]string{
		"item.ts":  `@smrt() export class Item { a = 1; }`,
		"thing.ts": `@smrt({ tableName: 'items' }) export class Thing { b = 2; }`,
	})

	report, err := newTestScanner(t, DefaultScanOptions()).Scan(context.Background(), paths, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, manifest.ErrCollision)
	require.NotNil(t, report)
	assert.Nil(t, report.Manifest)

	var collision *manifest.CollisionError
	require.True(t, errors.As(err, &collision))
	assert.Equal(t, manifest.CollisionCollection, collision.Kind)
	assert.Equal(t, "items", collision.Name)
}

func TestScan_StaticTableNameWins(t *testing.T) {
	t.Parallel()

	report := scanSources(t, map[string]string{
		"person.ts": `
@smrt({ tableName: 'humans' })
export class Person {
  static tableName = 'people_v2';
  name = '';
}`,
		"order_line.ts": `@smrt() export class OrderLine { qty = 1; }`,
	})

	assert.Equal(t, "people_v2", mustObject(t, report.Manifest, "Person").Collection)
	assert.Equal(t, "order_lines", mustObject(t, report.Manifest, "OrderLine").Collection)
}

func TestScan_IdempotentAndCached(t *testing.T) {
	t.Parallel()

	_, paths := writeSources(t, map[string]string{
		"product.ts": productSource,
		"task.ts":    `@smrt() export class Task { title = ''; async done(): Promise<void> {} }`,
	})

	s := newTestScanner(t, DefaultScanOptions(), WithCache(64))

	first, err := s.Scan(context.Background(), paths, "")
	require.NoError(t, err)
	assert.Equal(t, 0, first.Stats.CacheHits)

	second, err := s.Scan(context.Background(), paths, "")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Stats.CacheHits)

	a, err := manifest.Marshal(first.Manifest)
	require.NoError(t, err)
	b, err := manifest.Marshal(second.Manifest)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))

	// Test: a fresh scanner without a cache produces the same manifest
	third, err := newTestScanner(t, DefaultScanOptions()).Scan(context.Background(), paths, "")
	require.NoError(t, err)
	c, err := manifest.Marshal(third.Manifest)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(c))
}

const contentBase = `import { SmrtObject } from '@smrt/core';

export abstract class Content extends SmrtObject {
  title = '';
  body = '';
  async render(): Promise<string> {
    return this.body;
  }
}
`

const articleSource = `import { smrt } from '@smrt/core';
import { Content } from './base';

@smrt()
export class Article extends Content {
  body: string = 'empty';
  author = '';
  async render(): Promise<string> {
    return 'x';
  }
}

export class Draft extends Article {
  reviewer = '';
}
`

func TestScan_InheritanceAcrossImports(t *testing.T) {
	t.Parallel()

	dir, _ := writeSources(t, map[string]string{
		"base.ts":    contentBase,
		"article.ts": articleSource,
	})

	report, err := newTestScanner(t, DefaultScanOptions()).
		Scan(context.Background(), []string{filepath.Join(dir, "article.ts")}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Stats.Auxiliary)

	// Only input files contribute objects; the imported base stays out.
	assert.Equal(t, []string{"Article", "Draft"}, report.Manifest.ClassNames())

	article := mustObject(t, report.Manifest, "Article")
	assert.Equal(t, "Content", article.Extends)
	assert.Equal(t, []string{"title", "body", "author"}, article.FieldNames())
	assert.Equal(t, "empty", mustField(t, article, "body").Default)
	assert.Equal(t, []string{"render"}, article.MethodNames())

	draft := mustObject(t, report.Manifest, "Draft")
	assert.Equal(t, "drafts", draft.Collection)
	assert.Equal(t, "Article", draft.Extends)
	assert.Equal(t, []string{"title", "body", "author", "reviewer"}, draft.FieldNames())
	assert.Equal(t, manifest.DefaultDecoratorConfig(), draft.DecoratorConfig)
}

func TestScan_InheritanceWithoutFollowImports(t *testing.T) {
	t.Parallel()

	dir, _ := writeSources(t, map[string]string{
		"base.ts":    contentBase,
		"article.ts": articleSource,
	})

	opts := DefaultScanOptions()
	opts.FollowImports = false
	report, err := newTestScanner(t, opts).
		Scan(context.Background(), []string{filepath.Join(dir, "article.ts")}, "")
	require.NoError(t, err)
	assert.Equal(t, 0, report.Stats.Auxiliary)

	assert.Equal(t, []string{"Article"}, report.Manifest.ClassNames())
	article := mustObject(t, report.Manifest, "Article")
	assert.Equal(t, []string{"body", "author"}, article.FieldNames())
}

func TestScan_DefaultExportParent(t *testing.T) {
	t.Parallel()

	dir, _ := writeSources(t, map[string]string{
		"lib/timestamped.ts": `export default class Timestamped { createdAt = new Date(); }`,
		"note.ts": `import Timestamped from './lib/timestamped.js';
@smrt() export class Note extends Timestamped { text = ''; }`,
	})

	report, err := newTestScanner(t, DefaultScanOptions()).
		Scan(context.Background(), []string{filepath.Join(dir, "note.ts")}, "")
	require.NoError(t, err)

	note := mustObject(t, report.Manifest, "Note")
	assert.Equal(t, []string{"createdAt", "text"}, note.FieldNames())
	assert.Equal(t, manifest.FieldDatetime, mustField(t, note, "createdAt").Type)
}

func TestScan_UnresolvedImportAndCycle(t *testing.T) {
	t.Parallel()

	report := scanSources(t, map[string]string{
		"orphan.ts": `import { Missing } from './missing';
@smrt() export class Orphan extends Missing { a = ''; }`,
		"cycle.ts": `
@smrt() export class Alpha extends Beta { a = 1; }
export class Beta extends Alpha { b = 2; }`,
	})

	orphan := mustObject(t, report.Manifest, "Orphan")
	assert.Equal(t, []string{"a"}, orphan.FieldNames())
	assert.True(t, hasWarning(report.Warnings, manifest.DiagUnresolvedImport))
	assert.True(t, hasWarning(report.Warnings, manifest.DiagInheritanceCycle))

	alpha := mustObject(t, report.Manifest, "Alpha")
	assert.Contains(t, alpha.FieldNames(), "a")
}

func TestScan_CustomMarkers(t *testing.T) {
	t.Parallel()

	_, paths := writeSources(t, map[string]string{
		"models.ts": `
export class User extends Model { email = ''; }
@entity({ tableName: 'audit_log' }) export class Audit { action = ''; }
@smrt() export class Ignored { x = 1; }
export class Account extends SmrtObject { balance = 0.5; }`,
	})

	opts := DefaultScanOptions()
	opts.BaseClasses = []string{"Model"}
	opts.DecoratorNames = []string{"entity"}
	report, err := newTestScanner(t, opts).Scan(context.Background(), paths, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"Account", "Audit", "User"}, report.Manifest.ClassNames())
	assert.Equal(t, "audit_log", mustObject(t, report.Manifest, "Audit").Collection)
	assert.Equal(t, manifest.FieldDecimal, mustField(t, mustObject(t, report.Manifest, "Account"), "balance").Type)
}

func TestScan_Progress(t *testing.T) {
	t.Parallel()

	_, paths := writeSources(t, map[string]string{
		"a.ts": `@smrt() class A { x = 1; }`,
		"b.ts": `@smrt() class B { y = 1; }`,
		"c.ts": `class C {}`,
	})

	progress := &recordingProgress{}
	opts := DefaultScanOptions()
	opts.Workers = 2
	s := newTestScanner(t, opts, WithProgress(progress))
	_, err := s.Scan(context.Background(), paths, "")
	require.NoError(t, err)

	assert.Equal(t, 3, progress.total)
	assert.ElementsMatch(t, paths, progress.scanned)
	require.NotNil(t, progress.complete)
	assert.Equal(t, 2, progress.complete.Objects)
}

func TestScan_Cancelled(t *testing.T) {
	t.Parallel()

	_, paths := writeSources(t, map[string]string{"a.ts": `@smrt() class A { x = 1; }`})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestScanner(t, DefaultScanOptions()).Scan(ctx, paths, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptionsFingerprint(t *testing.T) {
	t.Parallel()

	a := DefaultScanOptions()
	b := DefaultScanOptions()
	b.Workers = a.Workers + 3
	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "worker count does not change output")

	b.IncludePrivateMethods = true
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}
